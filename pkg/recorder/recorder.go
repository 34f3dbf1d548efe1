// Package recorder archives the updates a host sends to its viewers.
//
// Record is called on the render goroutine and never blocks: frames are
// queued to a background worker, which groups them per session into
// segments and writes full segments to a Sink. When the queue is full the
// frame is dropped and counted.
//
// A segment is a plain concatenation of protocol frames, so a recording can
// be replayed with protocol.ReadFrame and a delta.Decoder (see Replay).
package recorder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Segment is a run of consecutive frames of one session.
type Segment struct {
	SessionID string
	// FirstSeq is the sequence number of the first frame in Data.
	FirstSeq uint64
	Frames   int
	Data     []byte
	// Final is set on the last segment written for a session.
	Final bool
}

// Sink stores segments. Write is only called from the recorder's worker.
type Sink interface {
	Write(ctx context.Context, seg *Segment) error
	Close() error
}

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("recorder: closed")

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithQueueSize sets how many frames may wait for the worker. Default: 256.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithSegmentSize sets the buffered bytes per session that trigger a write.
// Default: 1MB.
func WithSegmentSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.segmentSize = n
		}
	}
}

// WithFlushInterval writes partial segments at least this often.
// Default: 5 seconds.
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// Stats counts recorder activity.
type Stats struct {
	Recorded uint64
	Dropped  uint64
	Segments uint64
	Errors   uint64
}

type entry struct {
	sessionID string
	seq       uint64
	frame     []byte
}

type buffer struct {
	firstSeq uint64
	nextSeq  uint64
	frames   int
	data     bytes.Buffer
	lastSeen time.Time
}

// Recorder queues frames and writes them to a Sink.
type Recorder struct {
	sink          Sink
	logger        *zap.Logger
	queueSize     int
	segmentSize   int
	flushInterval time.Duration

	queue  chan entry
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool

	recorded atomic.Uint64
	dropped  atomic.Uint64
	segments atomic.Uint64
	errors   atomic.Uint64

	// Worker only.
	buffers map[string]*buffer
}

// New starts a recorder writing to sink.
func New(sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		sink:          sink,
		logger:        zap.NewNop(),
		queueSize:     256,
		segmentSize:   1 << 20,
		flushInterval: 5 * time.Second,
		done:          make(chan struct{}),
		buffers:       make(map[string]*buffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("recorder")
	r.queue = make(chan entry, r.queueSize)
	go r.run()
	return r
}

// Record queues one encoded frame. It never blocks; the frame is dropped
// when the queue is full or the recorder is closed. frame must not be
// modified afterwards.
func (r *Recorder) Record(sessionID string, seq uint64, frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.queue <- entry{sessionID: sessionID, seq: seq, frame: frame}:
		r.recorded.Add(1)
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("recording queue full, dropping frames", zap.Int("queue_size", r.queueSize))
		}
	}
}

// Stats returns a snapshot of the counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Segments: r.segments.Load(),
		Errors:   r.errors.Load(),
	}
}

// Close flushes every buffered segment, closes the sink and stops the
// worker.
func (r *Recorder) Close() error {
	err := ErrClosed
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done
		err = r.sink.Close()
	})
	return err
}

func (r *Recorder) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-r.queue:
			if !ok {
				for id := range r.buffers {
					r.flush(id, true)
				}
				return
			}
			r.add(e)
		case <-ticker.C:
			r.flushIdle()
		}
	}
}

func (r *Recorder) add(e entry) {
	b := r.buffers[e.sessionID]
	if b != nil && b.frames > 0 && e.seq != b.nextSeq {
		// A dropped frame ends the segment.
		r.flush(e.sessionID, false)
	}
	if b == nil {
		b = &buffer{}
		r.buffers[e.sessionID] = b
	}
	if b.frames == 0 {
		b.firstSeq = e.seq
	}
	b.data.Write(e.frame)
	b.frames++
	b.nextSeq = e.seq + 1
	b.lastSeen = time.Now()

	if b.data.Len() >= r.segmentSize {
		r.flush(e.sessionID, false)
	}
}

// flushIdle writes pending data and forgets sessions idle for two intervals.
func (r *Recorder) flushIdle() {
	now := time.Now()
	for id, b := range r.buffers {
		idle := now.Sub(b.lastSeen) >= 2*r.flushInterval
		if b.frames > 0 || idle {
			r.flush(id, idle)
		}
	}
}

func (r *Recorder) flush(sessionID string, final bool) {
	b := r.buffers[sessionID]
	if b == nil {
		return
	}
	if final {
		delete(r.buffers, sessionID)
	}
	if b.frames == 0 {
		return
	}

	seg := &Segment{
		SessionID: sessionID,
		FirstSeq:  b.firstSeq,
		Frames:    b.frames,
		Data:      bytes.Clone(b.data.Bytes()),
		Final:     final,
	}
	b.data.Reset()
	b.frames = 0

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.sink.Write(ctx, seg); err != nil {
		r.errors.Add(1)
		r.logger.Error("segment write failed",
			zap.String("session_id", sessionID),
			zap.Uint64("first_seq", seg.FirstSeq),
			zap.Int("frames", seg.Frames),
			zap.Error(err),
		)
		return
	}
	r.segments.Add(1)
}
