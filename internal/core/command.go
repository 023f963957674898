package core

// CommandKind describes what the connection asks for.
type CommandKind int

const (
	// CommandUnknown is any frame type the protocol does not define.
	CommandUnknown CommandKind = iota
	// CommandHostKeepAlive proves room ownership and refreshes the room TTL.
	CommandHostKeepAlive
	// CommandSendRoom publishes a payload to the host's room.
	CommandSendRoom
	// CommandConnectGuest subscribes the connection to a room's broadcasts.
	CommandConnectGuest
)

func (k CommandKind) String() string {
	switch k {
	case CommandHostKeepAlive:
		return "host-keepalive"
	case CommandSendRoom:
		return "send-room"
	case CommandConnectGuest:
		return "connect-guest"
	default:
		return "unknown"
	}
}

// Command is one inbound frame after decoding.
type Command struct {
	Kind CommandKind
	Room string
	Body string
}
