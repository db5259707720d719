package arbiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetrics struct{ sent int }

func (f *fakeMetrics) RecordResponseSent() { f.sent++ }

func TestDebuggerPacketReceivedSendsAckStub(t *testing.T) {
	var got []byte
	metrics := &fakeMetrics{}
	a := New(5*time.Millisecond, func(payload []byte) error {
		got = append([]byte(nil), payload...)
		return nil
	}, metrics)

	a.DebuggerPacketReceived(1)

	require.Len(t, got, 52)
	for _, b := range got {
		assert.Equal(t, byte(0), b)
	}
	assert.Equal(t, "responded", a.State())
	assert.Equal(t, 1, metrics.sent)
}

func TestDebounceQueuesRapidRepliesInsteadOfDropping(t *testing.T) {
	metrics := &fakeMetrics{}
	sentCount := 0
	a := New(50*time.Millisecond, func(payload []byte) error {
		sentCount++
		return nil
	}, metrics)

	a.DebuggerPacketReceived(1)
	a.DebuggerPacketReceived(2) // within debounce window, queued rather than dropped
	a.DebuggerPacketReceived(3) // also queued

	assert.Equal(t, 1, sentCount)
	assert.Equal(t, 2, a.QueueLen())

	// Ticking before the debounce window elapses drains nothing.
	a.Tick()
	assert.Equal(t, 1, sentCount)
	assert.Equal(t, 2, a.QueueLen())

	// Once the debounce window has elapsed, a tick drains one queued
	// reply per available token instead of losing it.
	time.Sleep(60 * time.Millisecond)
	a.Tick()
	assert.Equal(t, 2, sentCount)
	assert.Equal(t, 1, a.QueueLen())
}

func TestReplyQueueBoundedAtEightDeep(t *testing.T) {
	metrics := &fakeMetrics{}
	a := New(time.Hour, func(payload []byte) error { return nil }, metrics)

	a.DebuggerPacketReceived(1) // consumes the initial burst-1 token
	for i := uint32(2); i < 20; i++ {
		a.DebuggerPacketReceived(i)
	}

	assert.Equal(t, 8, a.QueueLen())
}

func TestResetClearsState(t *testing.T) {
	a := New(time.Millisecond, func([]byte) error { return nil }, &fakeMetrics{})
	a.DebuggerPacketReceived(1)
	assert.Equal(t, "responded", a.State())

	a.Reset()
	assert.Equal(t, "idle", a.State())
}
