package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dosier-app/dosier/dose"
	"github.com/dosier-app/dosier/storage"
)

const (
	// pendingWindowDays is how far ahead pending doses are considered at
	// all.
	pendingWindowDays = 30
	// scheduleWindowDays is how far ahead notifications are actually
	// registered with the host scheduler.
	scheduleWindowDays = 7
)

// Syncer reconciles the host scheduler with the store: every pending dose
// within the next 7 days gets exactly one scheduled notification, and
// stale notifications (doses meanwhile resolved, snoozed away or pruned)
// are cancelled.
type Syncer struct {
	store    storage.Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncer creates a Syncer.
func NewSyncer(store storage.Store, notifier Notifier, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one reconciliation pass for a profile.
func (s *Syncer) Sync(ctx context.Context, profileID string) error {
	now := s.now()

	pending, err := s.pendingDoses(ctx, profileID, now)
	if err != nil {
		return err
	}
	reminders, err := s.remindersByID(ctx, profileID)
	if err != nil {
		return err
	}

	valid := make(map[uint32]time.Time, len(pending))
	for _, d := range pending {
		valid[Key(d.ID)] = d.ScheduledAt
	}

	scheduled, err := s.notifier.Scheduled(ctx)
	if err != nil {
		return fmt.Errorf("notify sync: scheduled notifications: %w", err)
	}
	// Stale covers both removed doses and moved ones: a snoozed dose keeps
	// its key, so the old notification must be cancelled before the new
	// instant is scheduled below.
	var stale []uint32
	for k, at := range scheduled {
		if want, ok := valid[k]; !ok || !want.Equal(at) {
			stale = append(stale, k)
			delete(scheduled, k)
		}
	}
	if len(stale) > 0 {
		if err := s.notifier.CancelBatch(ctx, stale); err != nil {
			return fmt.Errorf("notify sync: cancel stale: %w", err)
		}
	}

	limit := now.AddDate(0, 0, scheduleWindowDays)
	added := 0
	for _, d := range pending {
		key := Key(d.ID)
		if _, ok := scheduled[key]; ok || !d.ScheduledAt.After(now) || d.ScheduledAt.After(limit) {
			continue
		}
		title, body := content(reminders[d.ReminderID])
		n := Notification{Key: key, DoseID: d.ID, Title: title, Body: body, At: d.ScheduledAt}
		if err := s.notifier.Schedule(ctx, n); err != nil {
			return fmt.Errorf("notify sync: schedule dose %s: %w", d.ID, err)
		}
		added++
	}

	s.logger.Debug("notification sync complete",
		"profile", profileID, "cancelled", len(stale), "scheduled", added)
	return nil
}

func (s *Syncer) pendingDoses(ctx context.Context, profileID string, now time.Time) ([]*storage.DoseEvent, error) {
	all, err := s.store.ListDoseEventsByRange(ctx, profileID, now, now.AddDate(0, 0, pendingWindowDays))
	if err != nil {
		return nil, fmt.Errorf("notify sync: list doses: %w", err)
	}
	pending := all[:0]
	for _, d := range all {
		if d.Status == storage.DosePending {
			pending = append(pending, d)
		}
	}
	return pending, nil
}

func (s *Syncer) remindersByID(ctx context.Context, profileID string) (map[string]*storage.Reminder, error) {
	list, err := s.store.ListRemindersByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("notify sync: list reminders: %w", err)
	}
	byID := make(map[string]*storage.Reminder, len(list))
	for _, r := range list {
		byID[r.ID] = r
	}
	return byID, nil
}

// content builds the notification copy for a dose of the given reminder.
func content(r *storage.Reminder) (title, body string) {
	if r == nil {
		return "Time for your medication", "A dose is due"
	}
	title = fmt.Sprintf("Time for your %s", r.MedicineName)
	if r.Dose != "" {
		body = fmt.Sprintf("Take %s %s", r.Dose, r.Unit)
	} else {
		body = "A dose is due"
	}
	if dose.StockLow(r) {
		body += fmt.Sprintf(" · %d left in stock", r.Stock.Stock)
	}
	return title, body
}
