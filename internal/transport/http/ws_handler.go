package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirelobby/internal/config"
	"github.com/vovakirdan/wirelobby/internal/core"
	"github.com/vovakirdan/wirelobby/internal/proto"
)

const replyBuffer = 16

// pendingReply is a response tagged with the number of events the client had
// been sent when the response was produced.
type pendingReply struct {
	out   proto.Outbound
	after uint64
}

// WSHandler upgrades HTTP connections and bridges them to the coordinator.
type WSHandler struct {
	coord       *core.Coordinator
	log         *zerolog.Logger
	readLimit   int64
	rateLimit   int
	rateWindow  time.Duration
	eventBuffer int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord *core.Coordinator, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		coord:       coord,
		log:         logger,
		readLimit:   cfg.MaxMessageBytes,
		rateLimit:   cfg.RateLimit,
		rateWindow:  time.Second,
		eventBuffer: cfg.EventBuffer,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient("", h.eventBuffer)
	if err := h.coord.Connect(client); err != nil {
		h.log.Error().Err(err).Str("conn", client.ID).Msg("register connection")
		return
	}
	defer h.coord.Disconnect(client.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit, h.rateWindow)
	limiter.startReset(ctx.Done())

	replies := make(chan pendingReply, replyBuffer)
	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter, replies)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, replies)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("conn", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter, replies chan<- pendingReply) error {
	for {
		typ, payload, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("conn", client.ID).Msg("read ws inbound")
			return err
		}

		var out *proto.Outbound
		var inbound proto.Inbound
		switch {
		case typ != websocket.MessageText || json.Unmarshal(payload, &inbound) != nil:
			o := errorOutbound("", &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "expected a JSON object"})
			out = &o
		case !limiter.allow():
			o := errorOutbound(inbound.ID, &proto.Error{Code: proto.ErrCodeRateLimited, Msg: "too many messages"})
			out = &o
		default:
			out = h.handle(ctx, client, inbound)
		}
		if out == nil {
			continue
		}

		select {
		case replies <- pendingReply{out: *out, after: client.Queued()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle runs one request and returns its direct response, if any.
func (h *WSHandler) handle(ctx context.Context, client *core.Client, inbound proto.Inbound) *proto.Outbound {
	respond := func(data any) *proto.Outbound {
		o := replyOutbound(inbound.ID, data)
		return &o
	}
	fail := func(e *proto.Error) *proto.Outbound {
		o := errorOutbound(inbound.ID, e)
		return &o
	}

	switch inbound.Type {
	case proto.InboundTypeListRooms:
		var req proto.ListRoomsData
		if perr := decodeData(inbound, &req); perr != nil {
			return fail(perr)
		}
		return respond(proto.RoomsReply{Rooms: lobbyEntries(h.coord.ListOpenRooms(req.Limit))})

	case proto.InboundTypeCreateRoom:
		var req proto.CreateRoomData
		if perr := decodeData(inbound, &req); perr != nil {
			return fail(perr)
		}
		room, err := h.coord.CreateRoom(ctx, client.ID, req.Name)
		if err != nil {
			return fail(protoError(err))
		}
		return respond(proto.RoomReply{Room: room})

	case proto.InboundTypeJoinRoom:
		var req proto.JoinRoomData
		if perr := decodeData(inbound, &req); perr != nil {
			return fail(perr)
		}
		room, err := h.coord.JoinRoom(ctx, client.ID, req.Room, req.Name)
		if err != nil {
			return fail(protoError(err))
		}
		return respond(proto.RoomReply{Room: room})

	case proto.InboundTypeLeaveRoom:
		var req proto.RoomData
		if perr := decodeData(inbound, &req); perr != nil {
			return fail(perr)
		}
		if perr := requireRoom(req.Room); perr != nil {
			return fail(perr)
		}
		if err := h.coord.LeaveRoom(ctx, client.ID, req.Room); err != nil {
			return fail(protoError(err))
		}
		return respond(proto.RoomReply{Room: core.NormalizeCode(req.Room)})

	case proto.InboundTypeToggleReady:
		ready, err := h.coord.ToggleReady(ctx, client.ID)
		if err != nil {
			return fail(protoError(err))
		}
		return respond(proto.ReadyReply{Ready: ready})

	case proto.InboundTypeGetRoomState:
		var req proto.RoomData
		if decodeData(inbound, &req) == nil {
			h.coord.GetRoomState(ctx, client.ID, req.Room)
		}
		return nil

	case proto.InboundTypeChat:
		var req proto.ChatData
		if decodeData(inbound, &req) != nil {
			return nil
		}
		if err := h.coord.SendChatMessage(ctx, client.ID, req.Room, req.Text); err != nil {
			h.log.Debug().Err(err).Str("conn", client.ID).Str("room", req.Room).Msg("chat dropped")
		}
		return nil

	default:
		return fail(&proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "unknown message type"})
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, replies <-chan pendingReply) error {
	var written uint64
	for {
		select {
		case event := <-client.Events:
			written++
			if err := h.writeEvent(ctx, conn, client, event); err != nil {
				return err
			}
		case reply := <-replies:
			// Events queued before the reply was produced go out first.
			for written < reply.after {
				var event *core.Event
				select {
				case event = <-client.Events:
				case <-ctx.Done():
					return ctx.Err()
				}
				written++
				if err := h.writeEvent(ctx, conn, client, event); err != nil {
					return err
				}
			}
			if err := wsjson.Write(ctx, conn, reply.out); err != nil {
				h.log.Error().Err(err).Str("conn", client.ID).Msg("write ws reply")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeEvent(ctx context.Context, conn *websocket.Conn, client *core.Client, event *core.Event) error {
	if event == nil {
		return nil
	}
	if err := wsjson.Write(ctx, conn, outboundFromEvent(client.ID, event)); err != nil {
		h.log.Error().Err(err).Str("conn", client.ID).Msg("write ws event")
		return err
	}
	return nil
}
