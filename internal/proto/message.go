package proto

// Inbound is a frame sent by a host or guest connection.
type Inbound struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Body   string `json:"body"`
}

const (
	InboundTypeHostKeepAlive = "host-keepalive"
	InboundTypeSendRoom      = "send-room"
	InboundTypeConnectGuest  = "connect-guest"

	OutboundTypeBroadcast = "broadcast"
	OutboundTypeError     = "error"
)

// Outbound is a frame sent to a connection.
type Outbound struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

// CreateRoomResponse is returned by the room creation endpoint.
type CreateRoomResponse struct {
	RoomID    string `json:"roomId"`
	RoomToken string `json:"roomToken"`
}
