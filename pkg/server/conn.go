package server

import (
	"context"
	"sync"
	"time"

	"github.com/vango-dev/remoteui/pkg/frame"
)

// Conn is the queue pair between one viewer's I/O goroutines and the render
// loop. The I/O side calls Deliver and reads Outbound; the render side calls
// Drain and Send. Either side may Close it.
//
// Neither channel is ever closed; Done signals the end of the connection.
type Conn struct {
	id       string
	inbound  chan *frame.Input
	outbound chan []byte
	done     chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

// NewConn creates a connection with the given queue capacities.
func NewConn(id string, inbound, outbound int) *Conn {
	if inbound <= 0 {
		inbound = DefaultSessionConfig().InboundQueue
	}
	if outbound <= 0 {
		outbound = DefaultSessionConfig().OutboundQueue
	}
	return &Conn{
		id:       id,
		inbound:  make(chan *frame.Input, inbound),
		outbound: make(chan []byte, outbound),
		done:     make(chan struct{}),
	}
}

// ID returns the session ID bound to this connection.
func (c *Conn) ID() string {
	return c.id
}

// Deliver queues an input snapshot for the render loop. It blocks while the
// inbound queue is full.
func (c *Conn) Deliver(ctx context.Context, in *frame.Input) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.inbound <- in:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain returns every queued input without blocking.
func (c *Conn) Drain() []*frame.Input {
	var out []*frame.Input
	for {
		select {
		case in := <-c.inbound:
			out = append(out, in)
		default:
			return out
		}
	}
}

// Send queues an encoded update for the write loop. While the outbound queue
// is full it blocks for at most timeout and then fails with ErrSendTimeout.
// timeout <= 0 waits until the connection closes.
func (c *Conn) Send(msg []byte, timeout time.Duration) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.outbound <- msg:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case c.outbound <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-expired:
		return ErrSendTimeout
	}
}

// Outbound returns the queue of encoded updates to write.
func (c *Conn) Outbound() <-chan []byte {
	return c.outbound
}

// Close marks the connection dead. The first error is kept; later calls are
// no-ops. A nil err records a normal close.
func (c *Conn) Close(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error the connection was closed with.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
