// Package lifecycle exposes repository change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/gonewton/constraint/pkg/core"
)

type eventSource struct {
	events <-chan core.Event
	limit  int
	out    chan lifecycle.Event
}

// SourceOption configures NewSource.
type SourceOption func(*eventSource)

// WithLimit closes the source after n events. Zero means no limit.
func WithLimit(n int) SourceOption {
	return func(s *eventSource) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSource bridges a constraint event channel to a lifecycle.Source.
// core.Event satisfies lifecycle.Event through its String method.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &eventSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards events until ctx ends, the input closes or the limit is reached.
// Events stays open until then and is closed afterwards.
func (s *eventSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		sent := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
				sent++
				if s.limit > 0 && sent >= s.limit {
					return nil
				}
			}
		}
	})
	return nil
}
