package http

import (
	"encoding/json"

	"github.com/vovakirdan/wirelobby/internal/core"
	"github.com/vovakirdan/wirelobby/internal/proto"
)

var errBadData = &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "malformed data"}

// decodeData unmarshals the request payload. An absent payload leaves dst untouched.
func decodeData(inbound proto.Inbound, dst any) *proto.Error {
	if len(inbound.Data) == 0 || string(inbound.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(inbound.Data, dst); err != nil {
		return errBadData
	}
	return nil
}

func requireRoom(room string) *proto.Error {
	if core.NormalizeCode(room) == "" {
		return &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "room is required"}
	}
	return nil
}

func replyOutbound(id string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeReply, ID: id, Data: data}
}

func errorOutbound(id string, e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, ID: id, Error: e}
}

// protoError maps a core error to its wire form. Unexpected errors are hidden.
func protoError(err error) *proto.Error {
	if ce, ok := core.AsCoreError(err); ok {
		return &proto.Error{Code: ce.Code, Msg: ce.Message}
	}
	return &proto.Error{Code: proto.ErrCodeInternal, Msg: "internal error"}
}

// outboundFromEvent renders ev for the connection selfID.
func outboundFromEvent(selfID string, event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomState, core.EventGameStart:
		out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
		if event.Room != nil {
			out.Data = roomState(selfID, *event.Room)
		}
		return out
	case core.EventLobbyChanged:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventLobbyChanged}
	case core.EventChatMessage:
		out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventChatMessage}
		if event.Chat != nil {
			out.Data = proto.ChatMessage{
				Room: event.Chat.Room,
				User: event.Chat.From,
				Text: event.Chat.Text,
				TS:   event.Chat.CreatedAt.UnixMilli(),
			}
		}
		return out
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func roomState(selfID string, room core.Room) proto.RoomState {
	members := make([]proto.Member, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, proto.Member{
			Name:  m.Name,
			Ready: m.Ready,
			Self:  m.ConnID == selfID,
		})
	}
	return proto.RoomState{
		Room:     room.ID,
		Phase:    room.Phase.String(),
		Capacity: room.Capacity,
		Members:  members,
	}
}
