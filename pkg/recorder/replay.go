package recorder

import (
	"errors"
	"fmt"
	"io"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/protocol"
)

// ReplayFunc receives each decoded update of a recording. Returning an
// error stops the replay.
type ReplayFunc func(n int, u *delta.Update, f *frame.Frame) error

// Replay decodes a recording read from r with dec. Frames recorded before
// the first full update cannot be decoded and are skipped; any later decode
// error is returned with the index of the offending update.
func Replay(r io.Reader, dec *delta.Decoder, fn ReplayFunc) error {
	synced := false
	for n := 0; ; n++ {
		pf, err := protocol.ReadFrame(r, 0)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("recorder: update %d: %w", n, err)
		}
		u, err := protocol.UpdateFromFrame(pf, 0)
		if err != nil {
			return fmt.Errorf("recorder: update %d: %w", n, err)
		}
		if !synced && u.Kind != delta.KindFull {
			continue
		}
		synced = true

		f, err := dec.Decode(u)
		if err != nil {
			return fmt.Errorf("recorder: update %d: %w", n, err)
		}
		if err := fn(n, u, f); err != nil {
			return err
		}
	}
}
