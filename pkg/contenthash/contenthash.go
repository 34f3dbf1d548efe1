// Package contenthash implements a cache keyed by the content of a value
// rather than its identity.
//
// A key source is serialized with msgpack (map keys sorted, so the encoding
// is deterministic) and the bytes are hashed with xxhash. The 64-bit digest
// is the cache key.
//
// # Policies
//
// ContentAddressed is the default policy: two sources with the same digest
// are treated as the same value. This is a probabilistic equality test; a
// hash collision makes the cache hand back the value built for a different
// source. The risk is accepted for draw shapes and text layouts, where a
// collision costs one wrong item for at most one baseline period.
//
// VerifyOnMatch keeps the serialized bytes of each entry and compares them on
// a digest match. A mismatch counts as a miss and the entry is rebuilt. It
// costs one extra copy of every key source.
//
// Caches never evict on their own. The owner resets them as a whole.
package contenthash

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Key is the content digest of a key source.
type Key uint64

// String returns the key as fixed-width hex.
func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Policy selects how a digest match is interpreted.
type Policy uint8

const (
	// ContentAddressed treats equal digests as equal content.
	ContentAddressed Policy = iota
	// VerifyOnMatch confirms a digest match by comparing serialized bytes.
	VerifyOnMatch
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	switch p {
	case ContentAddressed:
		return "ContentAddressed"
	case VerifyOnMatch:
		return "VerifyOnMatch"
	default:
		return "Unknown"
	}
}

// ErrSerialize is returned when a key source cannot be serialized.
var ErrSerialize = errors.New("contenthash: cannot serialize key source")

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// KeyOf serializes v and returns its digest together with the serialized
// bytes. The returned slice is owned by the caller.
func KeyOf(v any) (Key, []byte, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}

	content := make([]byte, buf.Len())
	copy(content, buf.Bytes())
	return Key(xxhash.Sum64(content)), content, nil
}

// Digest returns only the digest of v.
func Digest(v any) (Key, error) {
	k, _, err := KeyOf(v)
	return k, err
}
