package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize is the default payload limit (16 MiB).
	MaxPayloadSize = 16 * 1024 * 1024
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHandshake    FrameType = 0x00 // Connection setup
	FrameInput        FrameType = 0x01 // Viewer → host input snapshot
	FrameUpdate       FrameType = 0x02 // Host → viewer update
	FrameControl      FrameType = 0x03 // Ping, pong, close
	FrameErrorMessage FrameType = 0x05 // Error message
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHandshake:
		return "Handshake"
	case FrameInput:
		return "Input"
	case FrameUpdate:
		return "Update"
	case FrameControl:
		return "Control"
	case FrameErrorMessage:
		return "Error"
	default:
		return "Unknown"
	}
}

func (ft FrameType) valid() bool {
	switch ft {
	case FrameHandshake, FrameInput, FrameUpdate, FrameControl, FrameErrorMessage:
		return true
	}
	return false
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagCompressed FrameFlags = 0x01 // Payload is wrapped by Compress
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame represents a protocol frame with header and payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, flags FrameFlags, payload []byte) *Frame {
	return &Frame{Type: ft, Flags: flags, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	buf := make([]byte, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	binary.BigEndian.PutUint32(buf[2:FrameHeaderSize], uint32(len(f.Payload)))
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// DecodeFrame decodes a frame that must occupy all of data. The payload
// aliases data.
func DecodeFrame(data []byte, limit int) (*Frame, error) {
	if limit <= 0 {
		limit = MaxPayloadSize
	}
	if len(data) < FrameHeaderSize {
		return nil, &FrameError{Kind: ErrorPartial, Msg: fmt.Sprintf("frame of %d bytes has no header", len(data))}
	}

	ft := FrameType(data[0])
	if !ft.valid() {
		return nil, &FrameError{Kind: ErrorMalformed, Msg: fmt.Sprintf("invalid frame type 0x%02x", data[0])}
	}
	length := binary.BigEndian.Uint32(data[2:FrameHeaderSize])
	if uint64(length) > uint64(limit) {
		return nil, &FrameError{Kind: ErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", length, limit)}
	}
	if rest := len(data) - FrameHeaderSize; rest != int(length) {
		return nil, &FrameError{Kind: ErrorPartial, Msg: fmt.Sprintf("header declares %d payload bytes, message has %d", length, rest)}
	}

	return &Frame{
		Type:    ft,
		Flags:   FrameFlags(data[1]),
		Payload: data[FrameHeaderSize:],
	}, nil
}

// ReadFrame reads one frame from a stream. It returns io.EOF when the
// stream ends cleanly between frames.
func ReadFrame(r io.Reader, limit int) (*Frame, error) {
	if limit <= 0 {
		limit = MaxPayloadSize
	}
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: ErrorPartial, Msg: "failed to read frame header", Err: err}
	}

	ft := FrameType(header[0])
	if !ft.valid() {
		return nil, &FrameError{Kind: ErrorMalformed, Msg: fmt.Sprintf("invalid frame type 0x%02x", header[0])}
	}
	length := binary.BigEndian.Uint32(header[2:])
	if uint64(length) > uint64(limit) {
		return nil, &FrameError{Kind: ErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", length, limit)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &FrameError{Kind: ErrorPartial, Msg: "failed to read frame payload", Err: err}
	}
	return &Frame{Type: ft, Flags: FrameFlags(header[1]), Payload: payload}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return &FrameError{Kind: ErrorTooLarge, Msg: fmt.Sprintf("payload size %d exceeds maximum %d", len(f.Payload), MaxPayloadSize)}
	}
	_, err := w.Write(f.Encode())
	return err
}
