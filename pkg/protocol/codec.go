package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
)

// ClientToServer is the input payload sent by a viewer.
type ClientToServer struct {
	RawInput *frame.Input `msgpack:"raw_input"`
}

// ServerToClient is the update payload sent by the host.
type ServerToClient struct {
	Update *delta.Update `msgpack:"update"`
}

// mustCompress lists frame types whose payload is always compressed.
func mustCompress(ft FrameType) bool {
	return ft == FrameInput || ft == FrameUpdate
}

// Marshal encodes v as the compressed msgpack payload of a frame of type ft
// and returns the complete frame bytes.
func Marshal(ft FrameType, v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", ft, err)
	}
	payload, err := Compress(raw)
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{Kind: ErrorTooLarge, Msg: fmt.Sprintf("%s payload size %d exceeds maximum %d", ft, len(payload), MaxPayloadSize)}
	}
	return NewFrame(ft, FlagCompressed, payload).Encode(), nil
}

// Unmarshal decodes the payload of f into v. limit bounds the decompressed
// size; 0 means MaxPayloadSize.
func Unmarshal(f *Frame, limit int, v any) error {
	payload := f.Payload
	if f.Flags.Has(FlagCompressed) {
		var err error
		if payload, err = Decompress(payload, limit); err != nil {
			return err
		}
	} else if mustCompress(f.Type) {
		return &FrameError{Kind: ErrorMalformed, Msg: fmt.Sprintf("%s frame is not compressed", f.Type)}
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return &FrameError{Kind: ErrorDecode, Msg: fmt.Sprintf("decode %s payload", f.Type), Err: err}
	}
	return nil
}

// UnmarshalFrame decodes data as a frame of type want into v.
func UnmarshalFrame(data []byte, want FrameType, limit int, v any) error {
	f, err := DecodeFrame(data, limit)
	if err != nil {
		return err
	}
	if f.Type != want {
		return &FrameError{Kind: ErrorMalformed, Msg: fmt.Sprintf("got %s frame, want %s", f.Type, want)}
	}
	return Unmarshal(f, limit, v)
}

// EncodeInput encodes an input frame.
func EncodeInput(in *frame.Input) ([]byte, error) {
	return Marshal(FrameInput, &ClientToServer{RawInput: in})
}

// DecodeInput decodes an input frame.
func DecodeInput(data []byte, limit int) (*frame.Input, error) {
	var msg ClientToServer
	if err := UnmarshalFrame(data, FrameInput, limit, &msg); err != nil {
		return nil, err
	}
	if msg.RawInput == nil {
		return nil, &FrameError{Kind: ErrorDecode, Msg: "input frame has no raw_input"}
	}
	return msg.RawInput, nil
}

// EncodeUpdate encodes an update frame.
func EncodeUpdate(u *delta.Update) ([]byte, error) {
	return Marshal(FrameUpdate, &ServerToClient{Update: u})
}

// DecodeUpdate decodes an update frame.
func DecodeUpdate(data []byte, limit int) (*delta.Update, error) {
	f, err := DecodeFrame(data, limit)
	if err != nil {
		return nil, err
	}
	if f.Type != FrameUpdate {
		return nil, &FrameError{Kind: ErrorMalformed, Msg: fmt.Sprintf("got %s frame, want %s", f.Type, FrameUpdate)}
	}
	return UpdateFromFrame(f, limit)
}

// UpdateFromFrame decodes the update carried by an already parsed frame.
func UpdateFromFrame(f *Frame, limit int) (*delta.Update, error) {
	var msg ServerToClient
	if err := Unmarshal(f, limit, &msg); err != nil {
		return nil, err
	}
	if msg.Update == nil || msg.Update.Frame == nil {
		return nil, &FrameError{Kind: ErrorDecode, Msg: "update frame has no update"}
	}
	return msg.Update, nil
}
