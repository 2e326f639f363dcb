package core

import (
	"sync/atomic"
	"time"
)

// ChatMessage is the domain model for a chat message. It is never persisted.
type ChatMessage struct {
	Room      string
	From      string
	Text      string
	CreatedAt time.Time
}

// monoClock hands out timestamps that never go backwards, even if the wall clock does.
type monoClock struct {
	now  func() time.Time
	last atomic.Int64
}

func (c *monoClock) stamp() time.Time {
	for {
		prev := c.last.Load()
		next := c.now().UnixNano()
		if next < prev {
			next = prev
		}
		if c.last.CompareAndSwap(prev, next) {
			return time.Unix(0, next)
		}
	}
}
