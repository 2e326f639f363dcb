package core

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultEventBuffer is the per-client event queue size.
const DefaultEventBuffer = 32

// Client is a live transport session as seen by the core layer.
type Client struct {
	ID     string
	Events chan *Event

	queued atomic.Uint64
}

// NewClient constructs a client with an initialized event queue.
// An empty id gets a fresh uuid.
func NewClient(id string, buffer int) *Client {
	if id == "" {
		id = uuid.NewString()
	}
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
	}
}

// Deliver queues an event without blocking. It reports false if the queue is full.
func (c *Client) Deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		c.queued.Add(1)
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Queued reports how many events have been accepted into Events so far.
// Every counted event is already in the queue.
func (c *Client) Queued() uint64 {
	return c.queued.Load()
}
