// Package eventbus defines the port interface for publishing and
// consuming execution lifecycle events.
package eventbus

import (
	"context"

	"github.com/rcarraroia/renum/internal/domain/execution"
)

// Handler receives a single execution event. Returning an error leaves
// the message eligible for redelivery.
type Handler func(ctx context.Context, ev execution.Event) error

// Bus is the port interface for the execution event stream.
type Bus interface {
	// Publish emits an execution lifecycle event.
	Publish(ctx context.Context, ev execution.Event) error

	// Subscribe delivers events to h until the returned stop function
	// is called or the connection closes.
	Subscribe(ctx context.Context, h Handler) (stop func(), err error)
}
