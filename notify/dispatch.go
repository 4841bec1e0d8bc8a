package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dosier-app/dosier/dose"
)

// ActionKind is the user action reported back by the host notifier.
type ActionKind string

const (
	ActionTake   ActionKind = "take"
	ActionSkip   ActionKind = "skip"
	ActionSnooze ActionKind = "snooze"
)

// Action is a user response to a delivered notification, keyed by the
// dose event id carried in the notification payload.
type Action struct {
	Kind        ActionKind
	DoseID      string
	SnoozeUntil time.Time // ActionSnooze only
}

// Dispatcher routes notifier actions into the dose lifecycle.
type Dispatcher struct {
	lifecycle *dose.Lifecycle
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(lifecycle *dose.Lifecycle) *Dispatcher {
	return &Dispatcher{lifecycle: lifecycle}
}

// Handle applies one action. Unknown kinds are rejected.
func (d *Dispatcher) Handle(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionTake:
		return d.lifecycle.Take(ctx, a.DoseID)
	case ActionSkip:
		return d.lifecycle.Skip(ctx, a.DoseID)
	case ActionSnooze:
		return d.lifecycle.Snooze(ctx, a.DoseID, a.SnoozeUntil)
	default:
		return fmt.Errorf("dispatch action: unknown kind %q", a.Kind)
	}
}
