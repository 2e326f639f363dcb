package core

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of kind is already queued on ch. Other kinds are discarded.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		default:
			return
		}
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// sequentialCodes yields AAAA01, AAAA02, ... so tests can predict room codes.
func sequentialCodes() CodeGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("AAAA%02d", n.Add(1))
	}
}

type fixture struct {
	rooms *MemoryRoomStore
	conns *ConnRegistry
	coord *Coordinator
}

func newFixture(t *testing.T, opts StoreOptions) *fixture {
	t.Helper()
	rooms := NewRoomStore(opts)
	t.Cleanup(rooms.Close)
	conns := NewRegistry()
	return &fixture{
		rooms: rooms,
		conns: conns,
		coord: NewCoordinator(rooms, conns, Options{}),
	}
}

func (f *fixture) connect(t *testing.T, id string) *Client {
	t.Helper()
	c := NewClient(id, 64)
	if err := f.coord.Connect(c); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
	return c
}
