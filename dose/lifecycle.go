// Package dose implements the lifecycle of individual dose events:
// pending doses are taken, skipped or snoozed; resolved doses can be
// undone. Taking a dose decrements the reminder's stock when inventory
// tracking is on.
package dose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dosier-app/dosier/storage"
)

var (
	// ErrAlreadyResolved is returned when a dose is pushed toward one
	// terminal status while sitting in the other.
	ErrAlreadyResolved = errors.New("dose already resolved with a different status")
	// ErrNotPending is returned when snoozing a resolved dose.
	ErrNotPending = errors.New("dose is not pending")
	// ErrPastSnooze is returned when the snooze target is not in the future.
	ErrPastSnooze = errors.New("snooze time must be in the future")
)

// Lifecycle drives dose state transitions against the store.
type Lifecycle struct {
	store     storage.Store
	inventory *InventoryLedger
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLifecycle creates a Lifecycle on top of the given store.
func NewLifecycle(store storage.Store, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.inventory = &InventoryLedger{store: l.store, logger: l.logger}
	return l
}

// Take marks a pending dose as taken and decrements the reminder's stock.
// Taking an already-taken dose is a no-op, so UI retries after a rollback
// never double-decrement inventory. Taking a skipped dose is rejected.
func (l *Lifecycle) Take(ctx context.Context, doseID string) error {
	d, err := l.store.GetDoseEvent(ctx, doseID)
	if err != nil {
		return fmt.Errorf("take dose: %w", err)
	}
	switch d.Status {
	case storage.DoseTaken:
		return nil
	case storage.DoseSkipped:
		return fmt.Errorf("take dose %s: %w", doseID, ErrAlreadyResolved)
	}

	r, err := l.store.GetReminder(ctx, d.ReminderID)
	if err != nil {
		return fmt.Errorf("take dose %s: load reminder: %w", doseID, err)
	}

	// The dose records whether this take consumes a unit, so a later undo
	// restores only stock that was actually decremented.
	consumed := r.Stock != nil && r.Stock.Stock > 0
	now := l.now()
	if err := l.store.UpdateDoseStatus(ctx, doseID, storage.DoseTaken, &now, consumed); err != nil {
		return fmt.Errorf("take dose: %w", err)
	}
	if err := l.inventory.Decrement(ctx, r); err != nil {
		return fmt.Errorf("take dose %s: %w", doseID, err)
	}
	l.logger.Info("dose taken", "dose", doseID, "reminder", d.ReminderID)
	return nil
}

// Skip marks a pending dose as skipped, recording the skip time in
// TakenAt. Skipping an already-skipped dose is a no-op; skipping a taken
// dose is rejected.
func (l *Lifecycle) Skip(ctx context.Context, doseID string) error {
	d, err := l.store.GetDoseEvent(ctx, doseID)
	if err != nil {
		return fmt.Errorf("skip dose: %w", err)
	}
	switch d.Status {
	case storage.DoseSkipped:
		return nil
	case storage.DoseTaken:
		return fmt.Errorf("skip dose %s: %w", doseID, ErrAlreadyResolved)
	}

	now := l.now()
	if err := l.store.UpdateDoseStatus(ctx, doseID, storage.DoseSkipped, &now, false); err != nil {
		return fmt.Errorf("skip dose: %w", err)
	}
	l.logger.Info("dose skipped", "dose", doseID, "reminder", d.ReminderID)
	return nil
}

// Snooze moves a pending dose to a new future instant and marks it
// rescheduled. The dose stays pending.
func (l *Lifecycle) Snooze(ctx context.Context, doseID string, until time.Time) error {
	d, err := l.store.GetDoseEvent(ctx, doseID)
	if err != nil {
		return fmt.Errorf("snooze dose: %w", err)
	}
	if d.Resolved() {
		return fmt.Errorf("snooze dose %s: %w", doseID, ErrNotPending)
	}
	if !until.After(l.now()) {
		return fmt.Errorf("snooze dose %s: %w", doseID, ErrPastSnooze)
	}
	if err := l.store.RescheduleDoseEvent(ctx, doseID, until); err != nil {
		return fmt.Errorf("snooze dose: %w", err)
	}
	l.logger.Info("dose snoozed", "dose", doseID, "until", until)
	return nil
}

// Undo returns a resolved dose to pending and clears its resolution time.
// Undoing a taken dose also restores the decremented stock — but only when
// the take consumed a unit, so take-undo at zero stock never fabricates
// inventory. Undoing a pending dose is a no-op.
func (l *Lifecycle) Undo(ctx context.Context, doseID string) error {
	d, err := l.store.GetDoseEvent(ctx, doseID)
	if err != nil {
		return fmt.Errorf("undo dose: %w", err)
	}
	if !d.Resolved() {
		return nil
	}
	restock := d.Status == storage.DoseTaken && d.StockConsumed

	if err := l.store.UpdateDoseStatus(ctx, doseID, storage.DosePending, nil, false); err != nil {
		return fmt.Errorf("undo dose: %w", err)
	}
	if restock {
		r, err := l.store.GetReminder(ctx, d.ReminderID)
		if err != nil {
			return fmt.Errorf("undo dose %s: load reminder: %w", doseID, err)
		}
		if err := l.inventory.Restore(ctx, r); err != nil {
			return fmt.Errorf("undo dose %s: %w", doseID, err)
		}
	}
	l.logger.Info("dose undone", "dose", doseID)
	return nil
}

// LogSOS creates and immediately resolves a dose for an on-demand
// reminder (or an ad-hoc quick log): scheduled now, taken now, stock
// decremented. No generation window applies.
func (l *Lifecycle) LogSOS(ctx context.Context, reminderID string) (*storage.DoseEvent, error) {
	r, err := l.store.GetReminder(ctx, reminderID)
	if err != nil {
		return nil, fmt.Errorf("log sos dose: %w", err)
	}

	now := l.now()
	e := &storage.DoseEvent{
		ID:            uuid.NewString(),
		ReminderID:    r.ID,
		UserID:        r.UserID,
		ProfileID:     r.ProfileID,
		ScheduledAt:   now,
		Status:        storage.DoseTaken,
		TakenAt:       &now,
		StockConsumed: r.Stock != nil && r.Stock.Stock > 0,
	}
	if err := l.store.InsertDoseEvents(ctx, []*storage.DoseEvent{e}); err != nil {
		return nil, fmt.Errorf("log sos dose for %s: %w", reminderID, err)
	}
	if err := l.inventory.Decrement(ctx, r); err != nil {
		return nil, fmt.Errorf("log sos dose for %s: %w", reminderID, err)
	}
	l.logger.Info("sos dose logged", "reminder", reminderID)
	return e, nil
}

// IsOverdue reports whether a pending dose's time has passed. Overdue is a
// read-time classification for grouping and sorting, never a stored
// status.
func IsOverdue(d *storage.DoseEvent, now time.Time) bool {
	return d.Status == storage.DosePending && d.ScheduledAt.Before(now)
}
