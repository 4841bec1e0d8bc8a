package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies storage failures.
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed storage error.
func NewError(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a not-found storage error.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrNotFound
}

// Store is the persistence boundary consumed by the scheduler, the dose
// lifecycle and the notification sync. Implementations must serialize
// writes well enough that a delete-then-insert pair from a single caller
// observes its own delete, and must return typed Errors for the not-found
// and invalid-input cases.
type Store interface {
	// CreateReminder persists a new reminder.
	CreateReminder(ctx context.Context, r *Reminder) error
	// UpdateReminder persists changes to an existing reminder.
	UpdateReminder(ctx context.Context, r *Reminder) error
	// UpdateReminderStatus sets only the status and returns the updated row.
	UpdateReminderStatus(ctx context.Context, id string, status ReminderStatus) (*Reminder, error)
	// UpdateReminderStock overwrites the stock count inside the stock config.
	UpdateReminderStock(ctx context.Context, id string, stock int) error
	// GetReminder fetches a reminder by id, soft-deleted ones included.
	GetReminder(ctx context.Context, id string) (*Reminder, error)
	// ListRemindersByProfile returns the profile's non-deleted reminders,
	// newest first.
	ListRemindersByProfile(ctx context.Context, profileID string) ([]*Reminder, error)
	// ListSOSReminders returns the profile's non-deleted, non-finished
	// on-demand reminders ordered by medicine name.
	ListSOSReminders(ctx context.Context, profileID string) ([]*Reminder, error)
	// ListActiveReminders returns every active, non-deleted reminder across
	// all profiles. Used by the background sweep.
	ListActiveReminders(ctx context.Context) ([]*Reminder, error)
	// SoftDeleteReminder marks the reminder deleted without removing rows.
	SoftDeleteReminder(ctx context.Context, id string, at time.Time) error

	// InsertDoseEvents persists a batch of dose events atomically: either
	// the whole batch lands or none of it does.
	InsertDoseEvents(ctx context.Context, events []*DoseEvent) error
	// DeleteFuturePending removes the reminder's pending doses scheduled
	// strictly after cutoff. Resolved doses are never touched.
	DeleteFuturePending(ctx context.Context, reminderID string, cutoff time.Time) error
	// GetDoseEvent fetches a dose event by id.
	GetDoseEvent(ctx context.Context, id string) (*DoseEvent, error)
	// ListDoseEventsByRange returns the profile's doses with
	// start <= scheduledAt <= end, ascending.
	ListDoseEventsByRange(ctx context.Context, profileID string, start, end time.Time) ([]*DoseEvent, error)
	// ListOverduePending returns the profile's pending doses scheduled
	// strictly before the given instant, ascending.
	ListOverduePending(ctx context.Context, profileID string, before time.Time) ([]*DoseEvent, error)
	// LatestDoseTime returns the reminder's greatest scheduled_at, or nil
	// when the reminder has no dose events.
	LatestDoseTime(ctx context.Context, reminderID string) (*time.Time, error)
	// UpdateDoseStatus sets the status, resolution timestamp and stock
	// consumption marker of a dose.
	UpdateDoseStatus(ctx context.Context, id string, status DoseStatus, takenAt *time.Time, stockConsumed bool) error
	// RescheduleDoseEvent moves a dose to a new instant and marks it
	// rescheduled.
	RescheduleDoseEvent(ctx context.Context, id string, newTime time.Time) error
}
