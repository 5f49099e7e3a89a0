package effects

import (
	"context"
	"errors"
)

// ErrAmpChannelClosed is returned by Send/Recv after Close.
var ErrAmpChannelClosed = errors.New("effects: amp channel closed")

// ChanAmpChannel is an in-memory AmpChannel backed by a buffered Go
// channel, used by tests and the rendezvous/recovery choreographies
// running against the loopback transport in the simulation variant.
type ChanAmpChannel struct {
	out    chan []byte
	closed chan struct{}
}

// NewChanAmpChannel returns a fresh, empty AmpChannel with the given
// buffer depth.
func NewChanAmpChannel(buffer int) *ChanAmpChannel {
	return &ChanAmpChannel{out: make(chan []byte, buffer), closed: make(chan struct{})}
}

func (c *ChanAmpChannel) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.closed:
		return ErrAmpChannelClosed
	default:
	}
	select {
	case c.out <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrAmpChannelClosed
	}
}

func (c *ChanAmpChannel) Recv(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-c.out:
		if !ok {
			return nil, ErrAmpChannelClosed
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, ErrAmpChannelClosed
	}
}

func (c *ChanAmpChannel) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
		return nil
	}
}
