package p2term

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/ironsheep/pnutterm-ingest/internal/constants"
	"github.com/ironsheep/pnutterm-ingest/internal/destination"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// MockDestination is a test double for destination.Destination (and,
// optionally, destination.WindowCreatorDestination / destination.Rotator)
// that records every delivered record for assertions.
type MockDestination struct {
	mu sync.RWMutex

	id        string
	kind      destination.Kind
	immediate bool
	ready     bool

	delivered []string
	flushes   int
	created   []string
	rotations []string

	pushErr    error
	createErr  error
	rotateErr  error
}

// NewMockDestination builds a ready, immediate mock logger destination.
func NewMockDestination(id string) *MockDestination {
	return &MockDestination{id: id, kind: destination.Logger, immediate: true, ready: true}
}

// NewMockWindowCreator builds a mock window-creator destination.
func NewMockWindowCreator(id string) *MockDestination {
	return &MockDestination{id: id, kind: destination.WindowCreator, immediate: true, ready: true}
}

func (m *MockDestination) ID() string            { return m.id }
func (m *MockDestination) Kind() destination.Kind { return m.kind }
func (m *MockDestination) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}
func (m *MockDestination) Immediate() bool { return m.immediate }

// Push records the record's payload as a string snapshot.
func (m *MockDestination) Push(rec *message.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.delivered = append(m.delivered, string(rec.Payload()))
	return nil
}

// Flush records one flush call.
func (m *MockDestination) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// CreateWindow implements destination.WindowCreatorDestination.
func (m *MockDestination) CreateWindow(directive, target string, rec *message.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, target)
	return "window:" + target, nil
}

// Rotate implements destination.Rotator.
func (m *MockDestination) Rotate(sequenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rotateErr != nil {
		return m.rotateErr
	}
	m.rotations = append(m.rotations, sequenceID)
	return nil
}

// SetReady controls the Ready() flag for testing destination-lost paths.
func (m *MockDestination) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// SetPushError makes subsequent Push calls fail, simulating a lost destination.
func (m *MockDestination) SetPushError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushErr = err
}

// Delivered returns a copy of every payload this destination received.
func (m *MockDestination) Delivered() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.delivered))
	copy(out, m.delivered)
	return out
}

// Created returns the window targets this destination was asked to create.
func (m *MockDestination) Created() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.created))
	copy(out, m.created)
	return out
}

// Rotations returns the sequence ids this destination was asked to rotate on.
func (m *MockDestination) Rotations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.rotations))
	copy(out, m.rotations)
	return out
}

// Flushes returns how many times Flush was called.
func (m *MockDestination) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Compile-time interface checks.
var (
	_ destination.Destination             = (*MockDestination)(nil)
	_ destination.WindowCreatorDestination = (*MockDestination)(nil)
	_ destination.Rotator                  = (*MockDestination)(nil)
)

// MockTransport is an in-memory Transport: Read drains a feed buffer
// fed by test code, Write records what was sent back (the arbiter's
// ack stubs), matching how a real serial port's Read/Write would look
// from the ingestor's side.
type MockTransport struct {
	mu       sync.Mutex
	feed     bytes.Buffer
	written  [][]byte
	readErr  error
}

// NewMockTransport builds an empty transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Feed appends bytes the next Read calls will return.
func (t *MockTransport) Feed(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feed.Write(p)
}

// SetReadError makes Read return err once the feed buffer drains.
func (t *MockTransport) SetReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

func (t *MockTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.feed.Len() == 0 {
		if t.readErr != nil {
			return 0, t.readErr
		}
		return 0, nil
	}
	return t.feed.Read(p)
}

func (t *MockTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), p...)
	t.written = append(t.written, cp)
	return len(p), nil
}

// Written returns a copy of every payload written to the transport.
func (t *MockTransport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

var _ io.ReadWriter = (*MockTransport)(nil)

// BuildCogLine synthesizes a CogMessage line: "Cog<n> <text>\n".
func BuildCogLine(cogNum int, text string) []byte {
	return []byte(fmt.Sprintf("Cog%d %s\n", cogNum, text))
}

// BuildBacktickLine synthesizes a BacktickWindow line. If directive is
// non-empty it is a creation line ("`DIRECTIVE target rest\n"),
// otherwise it is an update line addressed directly at target
// ("`target rest\n").
func BuildBacktickLine(directive, target, rest string) []byte {
	if directive == "" {
		return []byte(fmt.Sprintf("`%s %s\n", target, rest))
	}
	return []byte(fmt.Sprintf("`%s %s %s\n", directive, target, rest))
}

// BuildDebuggerPacket synthesizes a well-formed 416-byte debugger
// packet for cogID: bytes 0..4 and 4..8 both carry cogID little-endian,
// and byte 8 is non-zero so it passes the default sanity check.
func BuildDebuggerPacket(cogID uint32) []byte {
	buf := make([]byte, constants.DebuggerPacketSize)
	binary.LittleEndian.PutUint32(buf[0:4], cogID)
	binary.LittleEndian.PutUint32(buf[4:8], cogID)
	buf[8] = 0xFF
	return buf
}
