package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// Component is a background piece of the bot process with an explicit
// start/stop lifecycle, like the metrics endpoint.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime starts components in registration order and stops them in reverse.
// Only components that actually started are stopped, so a failed Start rolls
// back cleanly and a later Stop never touches a component that never ran.
type Runtime struct {
	components []Component
	started    []Component
}

func NewRuntime(components ...Component) *Runtime {
	r := &Runtime{}
	for _, component := range components {
		if component == nil {
			continue
		}
		r.components = append(r.components, component)
	}
	return r
}

func (r *Runtime) Start(ctx context.Context) error {
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			startErr := fmt.Errorf("start component: %w", err)
			return errors.Join(startErr, r.Stop(ctx))
		}
		r.started = append(r.started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	var stopErr error
	for i := len(r.started) - 1; i >= 0; i-- {
		if err := r.started[i].Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop component: %w", err))
		}
	}
	r.started = nil
	return stopErr
}
