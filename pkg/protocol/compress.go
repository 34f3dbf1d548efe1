package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Compression methods.
const (
	methodStored byte = 0x00
	methodLZ4    byte = 0x01
)

// Compress wraps src as [uvarint raw length][method][data]. Data that lz4
// cannot shrink is stored as is.
func Compress(src []byte) ([]byte, error) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(src)))

	dst := make([]byte, n+1+lz4.CompressBlockBound(len(src)))
	copy(dst, lenBuf[:n])

	var c lz4.Compressor
	size, err := c.CompressBlock(src, dst[n+1:])
	if err != nil {
		return nil, fmt.Errorf("protocol: lz4 compress: %w", err)
	}
	if size == 0 || size >= len(src) {
		dst = dst[:n+1+len(src)]
		dst[n] = methodStored
		copy(dst[n+1:], src)
		return dst, nil
	}
	dst[n] = methodLZ4
	return dst[:n+1+size], nil
}

// Decompress reverses Compress. A declared raw length above limit is
// rejected before any allocation.
func Decompress(src []byte, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxPayloadSize
	}
	rawLen, n := binary.Uvarint(src)
	if n <= 0 || len(src) < n+1 {
		return nil, &FrameError{Kind: ErrorCompression, Msg: "truncated compression header"}
	}
	if rawLen > uint64(limit) {
		return nil, &FrameError{Kind: ErrorTooLarge, Msg: fmt.Sprintf("decompressed size %d exceeds maximum %d", rawLen, limit)}
	}

	method, data := src[n], src[n+1:]
	switch method {
	case methodStored:
		if uint64(len(data)) != rawLen {
			return nil, &FrameError{Kind: ErrorCompression, Msg: fmt.Sprintf("stored payload has %d bytes, header declares %d", len(data), rawLen)}
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case methodLZ4:
		out := make([]byte, rawLen)
		got, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, &FrameError{Kind: ErrorCompression, Msg: "lz4 decompress", Err: err}
		}
		if uint64(got) != rawLen {
			return nil, &FrameError{Kind: ErrorCompression, Msg: fmt.Sprintf("lz4 produced %d bytes, header declares %d", got, rawLen)}
		}
		return out, nil
	default:
		return nil, &FrameError{Kind: ErrorCompression, Msg: fmt.Sprintf("unknown compression method 0x%02x", method)}
	}
}
