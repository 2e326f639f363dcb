package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirelobby/internal/config"
	"github.com/vovakirdan/wirelobby/internal/core"
	"github.com/vovakirdan/wirelobby/internal/proto"
)

type testOutbound struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *core.Coordinator) {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	rooms := core.NewRoomStore(core.StoreOptions{})
	t.Cleanup(rooms.Close)
	coord := core.NewCoordinator(rooms, core.NewRegistry(), core.Options{})

	logger := zerolog.Nop()
	server := NewServer(coord, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, coord
}

type wsClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return &wsClient{t: t, ctx: ctx, conn: conn}
}

func (c *wsClient) send(typ, id string, data any) {
	c.t.Helper()

	inbound := proto.Inbound{Type: typ, ID: id}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			c.t.Fatalf("marshal %s: %v", typ, err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(c.ctx, c.conn, inbound); err != nil {
		c.t.Fatalf("send %s: %v", typ, err)
	}
}

// expect reads until match accepts a message and returns it.
func (c *wsClient) expect(match func(testOutbound) bool) testOutbound {
	c.t.Helper()

	for {
		var out testOutbound
		if err := wsjson.Read(c.ctx, c.conn, &out); err != nil {
			c.t.Fatalf("read outbound: %v", err)
		}
		if match(out) {
			return out
		}
	}
}

func (c *wsClient) expectReply(id string) testOutbound {
	c.t.Helper()
	return c.expect(func(o testOutbound) bool {
		return (o.Type == proto.OutboundTypeReply || o.Type == proto.OutboundTypeError) && o.ID == id
	})
}

func (c *wsClient) expectEvent(event string) testOutbound {
	c.t.Helper()
	return c.expect(func(o testOutbound) bool {
		return o.Type == proto.OutboundTypeEvent && o.Event == event
	})
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}
