package http

import (
	"github.com/vovakirdan/ephroom/internal/core"
	"github.com/vovakirdan/ephroom/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) *core.Command {
	cmd := &core.Command{Room: inbound.RoomID, Body: inbound.Body}
	switch inbound.Type {
	case proto.InboundTypeHostKeepAlive:
		cmd.Kind = core.CommandHostKeepAlive
	case proto.InboundTypeSendRoom:
		cmd.Kind = core.CommandSendRoom
	case proto.InboundTypeConnectGuest:
		cmd.Kind = core.CommandConnectGuest
	default:
		cmd.Kind = core.CommandUnknown
	}
	return cmd
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventBroadcast:
		return proto.Outbound{Type: proto.OutboundTypeBroadcast, Body: event.Body}
	case core.EventError:
		return proto.Outbound{Type: proto.OutboundTypeError, Body: event.Body}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Body: core.ErrCodeInvalid}
	}
}
