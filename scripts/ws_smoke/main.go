package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirelobby/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run creates a room, joins it from a second connection, readies both players
// and exchanges one chat line. It prints every message the host receives.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	host := flag.String("host", "host-player", "display name of the room creator")
	guest := flag.String("guest", "guest-player", "display name of the second player")
	text := flag.String("text", "hello from smoke test", "chat text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	hostConn, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer hostConn.Close(websocket.StatusNormalClosure, "bye")

	guestConn, err := dial(ctx, *addr)
	if err != nil {
		return err
	}
	defer guestConn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, hostConn, proto.InboundTypeCreateRoom, "create", proto.CreateRoomData{Name: *host}); err != nil {
		return err
	}
	reply, err := awaitReply(ctx, hostConn, "create")
	if err != nil {
		return err
	}
	var created proto.RoomReply
	if err := json.Unmarshal(reply, &created); err != nil {
		return fmt.Errorf("decode create reply: %w", err)
	}
	fmt.Printf("Created room %s\n", created.Room)

	if err := send(ctx, guestConn, proto.InboundTypeJoinRoom, "join", proto.JoinRoomData{Room: created.Room, Name: *guest}); err != nil {
		return err
	}
	if _, err := awaitReply(ctx, guestConn, "join"); err != nil {
		return err
	}

	if err := send(ctx, hostConn, proto.InboundTypeChat, "", proto.ChatData{Room: created.Room, Text: *text}); err != nil {
		return err
	}
	for _, c := range []*websocket.Conn{hostConn, guestConn} {
		if err := send(ctx, c, proto.InboundTypeToggleReady, "ready", nil); err != nil {
			return err
		}
	}

	for {
		var outbound proto.Outbound
		var raw json.RawMessage
		outbound.Data = &raw
		if err := wsjson.Read(ctx, hostConn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
		}

		switch outbound.Event {
		case proto.EventChatMessage:
			var msg proto.ChatMessage
			if err := json.Unmarshal(raw, &msg); err == nil {
				fmt.Printf("Chat: room=%s user=%s text=%q ts=%d\n", msg.Room, msg.User, msg.Text, msg.TS)
			}
		case proto.EventRoomState:
			var state proto.RoomState
			if err := json.Unmarshal(raw, &state); err == nil {
				fmt.Printf("Room: %s phase=%s members=%d/%d\n", state.Room, state.Phase, len(state.Members), state.Capacity)
			}
		case proto.EventGameStart:
			fmt.Println("Game started")
			return nil
		}
	}
}

func dial(ctx context.Context, addr string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

func send(ctx context.Context, conn *websocket.Conn, typ, id string, data any) error {
	inbound := proto.Inbound{Type: typ, ID: id}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(ctx, conn, inbound); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// awaitReply skips events until the reply or error for id arrives.
func awaitReply(ctx context.Context, conn *websocket.Conn, id string) (json.RawMessage, error) {
	for {
		var outbound proto.Outbound
		var raw json.RawMessage
		outbound.Data = &raw
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		if outbound.ID != id {
			continue
		}
		if outbound.Error != nil {
			return nil, fmt.Errorf("%s: %s (%s)", id, outbound.Error.Msg, outbound.Error.Code)
		}
		return raw, nil
	}
}
