package protocol

import "fmt"

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInvalidFormat   HandshakeStatus = 0x06 // Malformed handshake message
	HandshakeInternalError   HandshakeStatus = 0x08 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8 `msgpack:"major"`
	Minor uint8 `msgpack:"minor"`
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether peers speaking v and o can talk. Minor
// versions only add optional fields.
func (v ProtocolVersion) Compatible(o ProtocolVersion) bool {
	return v.Major == o.Major
}

// ClientHello is sent by the viewer right after the websocket opens.
type ClientHello struct {
	Version ProtocolVersion `msgpack:"version"`
	// Name identifies the viewer program in host logs.
	Name string `msgpack:"name"`
	// ViewportW and ViewportH are the initial surface size in points.
	ViewportW uint16 `msgpack:"vw"`
	ViewportH uint16 `msgpack:"vh"`
}

// ServerHello is the host's response to ClientHello.
type ServerHello struct {
	Status     HandshakeStatus `msgpack:"status"`
	Version    ProtocolVersion `msgpack:"version"`
	SessionID  string          `msgpack:"session_id"`
	ServerTime uint64          `msgpack:"server_time"` // Unix milliseconds
	// TickRate is the host render rate in ticks per second.
	TickRate uint16 `msgpack:"tick_rate"`
}

// EncodeClientHello encodes a ClientHello frame.
func EncodeClientHello(ch *ClientHello) ([]byte, error) {
	return Marshal(FrameHandshake, ch)
}

// DecodeClientHello decodes a ClientHello frame.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	ch := &ClientHello{}
	if err := UnmarshalFrame(data, FrameHandshake, 0, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHello encodes a ServerHello frame.
func EncodeServerHello(sh *ServerHello) ([]byte, error) {
	return Marshal(FrameHandshake, sh)
}

// DecodeServerHello decodes a ServerHello frame.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	sh := &ServerHello{}
	if err := UnmarshalFrame(data, FrameHandshake, 0, sh); err != nil {
		return nil, err
	}
	return sh, nil
}
