package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/ironsheep/pnutterm-ingest/internal/destination"
	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// consoleDestination writes every delivered record to stdout, one line
// per message, tagged with its kind. It is immediate (no internal
// queue) and acknowledges DTR-triggered log rotations by printing a
// separator so a human watching the terminal can see the reset land.
type consoleDestination struct {
	mu sync.Mutex
	id string
}

func newConsoleDestination(id string) *consoleDestination {
	return &consoleDestination{id: id}
}

func (c *consoleDestination) ID() string            { return c.id }
func (c *consoleDestination) Kind() destination.Kind { return destination.Logger }
func (c *consoleDestination) Ready() bool            { return true }
func (c *consoleDestination) Immediate() bool        { return true }

func (c *consoleDestination) Push(rec *message.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(os.Stdout, "[%s] %s\n", rec.Kind, rec.Payload())
	return nil
}

func (c *consoleDestination) Flush() error { return nil }

// Rotate implements destination.Rotator.
func (c *consoleDestination) Rotate(sequenceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(os.Stdout, "----- reset %s -----\n", sequenceID)
	return nil
}

var (
	_ destination.Destination = (*consoleDestination)(nil)
	_ destination.Rotator     = (*consoleDestination)(nil)
)
