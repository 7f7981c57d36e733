package stream

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChannelClosed means the peer is gone. It is terminal, never retried.
	ErrChannelClosed = errors.New("event channel closed")

	// ErrReceiveTimeout is the normal "nothing arrived yet" outcome of a poll.
	ErrReceiveTimeout = errors.New("event channel receive timeout")
)

// EventChannel is the bidirectional text channel to one client.
// Frames sent by one caller are delivered in send order.
type EventChannel interface {
	Send(ctx context.Context, frame string) error

	// ReceiveWithTimeout returns the next inbound frame, ErrReceiveTimeout
	// when nothing arrived within d, ErrChannelClosed on disconnect, or
	// ctx.Err() when ctx ends first. A frame is never consumed unless it
	// is returned.
	ReceiveWithTimeout(ctx context.Context, d time.Duration) (string, error)
}
