package protocol

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01 // Application-level ping
	ControlPong  ControlType = 0x02 // Response to ping
	ControlClose ControlType = 0x20 // Session close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a session is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00 // Normal closure
	CloseGoingAway      CloseReason = 0x01 // Viewer or host going away
	CloseServerShutdown CloseReason = 0x03 // Host shutting down
	CloseError          CloseReason = 0x04 // Error occurred
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Control is the payload of a FrameControl.
type Control struct {
	Type ControlType `msgpack:"type"`
	// Timestamp is set on ping and echoed on pong (Unix milliseconds).
	Timestamp uint64      `msgpack:"ts,omitempty"`
	Reason    CloseReason `msgpack:"reason,omitempty"`
	Message   string      `msgpack:"message,omitempty"`
}

// NewPing returns a ping control message.
func NewPing(ts uint64) *Control {
	return &Control{Type: ControlPing, Timestamp: ts}
}

// NewPong returns the pong answering ping.
func NewPong(ping *Control) *Control {
	return &Control{Type: ControlPong, Timestamp: ping.Timestamp}
}

// NewClose returns a close control message.
func NewClose(reason CloseReason, message string) *Control {
	return &Control{Type: ControlClose, Reason: reason, Message: message}
}

// EncodeControl encodes a control frame.
func EncodeControl(c *Control) ([]byte, error) {
	return Marshal(FrameControl, c)
}
