package p2term

import (
	"testing"
	"time"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()

	if snap.BytesIn != 0 {
		t.Errorf("Expected 0 initial bytes_in, got %d", snap.BytesIn)
	}
	if snap.MessagesEmitted[message.CogMessage.String()] != 0 {
		t.Errorf("Expected 0 initial cog messages, got %d", snap.MessagesEmitted[message.CogMessage.String()])
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordBytesIn(512)
	m.RecordZeroSkip(64)
	m.RecordMessageEmitted(message.CogMessage)
	m.RecordMessageEmitted(message.CogMessage)
	m.RecordMessageEmitted(message.DebuggerPacket)
	m.RecordOverflow()
	m.RecordPoolExhaustion()
	m.RecordResponseSent()
	m.RecordResetCoalesced()

	snap := m.Snapshot()

	if snap.BytesIn != 512 {
		t.Errorf("Expected BytesIn=512, got %d", snap.BytesIn)
	}
	if snap.BytesSkippedZero != 64 {
		t.Errorf("Expected BytesSkippedZero=64, got %d", snap.BytesSkippedZero)
	}
	if snap.MessagesEmitted[message.CogMessage.String()] != 2 {
		t.Errorf("Expected 2 CogMessage emissions, got %d", snap.MessagesEmitted[message.CogMessage.String()])
	}
	if snap.MessagesEmitted[message.DebuggerPacket.String()] != 1 {
		t.Errorf("Expected 1 DebuggerPacket emission, got %d", snap.MessagesEmitted[message.DebuggerPacket.String()])
	}
	if snap.OverflowCount != 1 {
		t.Errorf("Expected OverflowCount=1, got %d", snap.OverflowCount)
	}
	if snap.PoolExhaustionCount != 1 {
		t.Errorf("Expected PoolExhaustionCount=1, got %d", snap.PoolExhaustionCount)
	}
	if snap.ResponsesSent != 1 {
		t.Errorf("Expected ResponsesSent=1, got %d", snap.ResponsesSent)
	}
	if snap.ResetsCoalesced != 1 {
		t.Errorf("Expected ResetsCoalesced=1, got %d", snap.ResetsCoalesced)
	}
}

func TestMetricsVelocityAndPacer(t *testing.T) {
	m := NewMetrics()

	m.SetVelocityEWMA(42.5)
	m.SetCurrentPacerMs(5)

	snap := m.Snapshot()
	if snap.VelocityEWMA < 42.4 || snap.VelocityEWMA > 42.6 {
		t.Errorf("Expected VelocityEWMA ~42.5, got %.3f", snap.VelocityEWMA)
	}
	if snap.CurrentPacerMs != 5 {
		t.Errorf("Expected CurrentPacerMs=5, got %d", snap.CurrentPacerMs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+20*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordBytesIn(1024)
	m.RecordMessageEmitted(message.TerminalOutput)
	m.RecordOverflow()

	snap := m.Snapshot()
	if snap.BytesIn == 0 {
		t.Error("Expected bytes_in recorded before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.BytesIn != 0 {
		t.Errorf("Expected BytesIn=0 after reset, got %d", snap.BytesIn)
	}
	if snap.OverflowCount != 0 {
		t.Errorf("Expected OverflowCount=0 after reset, got %d", snap.OverflowCount)
	}
	if snap.MessagesEmitted[message.TerminalOutput.String()] != 0 {
		t.Errorf("Expected TerminalOutput count=0 after reset, got %d", snap.MessagesEmitted[message.TerminalOutput.String()])
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveBytesIn(1024)
	observer.ObserveZeroSkip(10)
	observer.ObserveMessageEmitted(message.CogMessage)
	observer.ObserveOverflow()
	observer.ObservePoolExhaustion()
	observer.ObserveResponseSent()
	observer.ObserveResetCoalesced()
	observer.ObserveVelocity(10.0)
	observer.ObservePacer(5)

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveBytesIn(1024)
	metricsObserver.ObserveMessageEmitted(message.CogMessage)
	metricsObserver.ObserveResponseSent()

	snap := m.Snapshot()
	if snap.BytesIn != 1024 {
		t.Errorf("Expected BytesIn=1024 from observer, got %d", snap.BytesIn)
	}
	if snap.MessagesEmitted[message.CogMessage.String()] != 1 {
		t.Errorf("Expected 1 CogMessage from observer, got %d", snap.MessagesEmitted[message.CogMessage.String()])
	}
	if snap.ResponsesSent != 1 {
		t.Errorf("Expected ResponsesSent=1 from observer, got %d", snap.ResponsesSent)
	}
}
