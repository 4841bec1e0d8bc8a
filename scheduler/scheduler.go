// Package scheduler keeps persisted dose events consistent with a
// reminder's recurrence rule under a rolling 30-day horizon. It owns the
// create/update/pause/resume/finish/delete lifecycle of a reminder and the
// background sweep that extends schedules before they run out.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dosier-app/dosier/schedule"
	"github.com/dosier-app/dosier/storage"
)

const (
	// windowDays is the rolling generation horizon.
	windowDays = 30
	// headThresholdDays is how close the schedule head may get to now
	// before the sweep extends it.
	headThresholdDays = 7
	// doseLogKeyLayout keys historical dose corrections on create.
	doseLogKeyLayout = "2006-01-02T15:04"
)

// DoseLog maps occurrence keys (formatted with doseLogKeyLayout) to the
// status a backdated dose should be created with.
type DoseLog map[string]storage.DoseStatus

// Scheduler orchestrates reminder persistence and dose generation.
// Operations on the same reminder are serialized through a per-reminder
// lock; operations on different reminders run independently.
type Scheduler struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
	locks  keyedMutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Scheduler on top of the given store.
func New(store storage.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new reminder and materializes its first generation
// window, 30 days from the start date (not from today, so future-dated
// reminders still get their full window). logs may carry historical
// corrections for backdated starts; matching occurrences are created
// already resolved instead of pending.
func (s *Scheduler) Create(ctx context.Context, r *storage.Reminder, logs DoseLog) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	unlock := s.locks.lock(r.ID)
	defer unlock()

	now := s.now()
	if r.Status == "" {
		r.Status = storage.StatusActive
	}
	if err := s.resolveEnd(r); err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.store.CreateReminder(ctx, r); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}

	genStart := r.StartDate
	windowEnd := s.windowEnd(genStart, r.EndDate)
	occurrences, err := schedule.Generate(r.Schedule, r.StartTime, genStart, windowEnd)
	if err != nil {
		return fmt.Errorf("create reminder %s: %w", r.ID, err)
	}

	events := make([]*storage.DoseEvent, 0, len(occurrences))
	for _, at := range occurrences {
		e := &storage.DoseEvent{
			ID:          uuid.NewString(),
			ReminderID:  r.ID,
			UserID:      r.UserID,
			ProfileID:   r.ProfileID,
			ScheduledAt: at,
			Status:      storage.DosePending,
		}
		if status, ok := logs[at.Format(doseLogKeyLayout)]; ok {
			e.Status = status
			if status == storage.DoseTaken {
				taken := at
				e.TakenAt = &taken
			}
		}
		events = append(events, e)
	}
	if len(events) > 0 {
		if err := s.store.InsertDoseEvents(ctx, events); err != nil {
			return fmt.Errorf("create reminder %s: insert doses: %w", r.ID, err)
		}
	}

	s.logger.Info("reminder created",
		"id", r.ID, "medicine", r.MedicineName, "doses", len(events))
	return nil
}

// Update persists changes to a reminder, drops its future pending doses and
// regenerates them from now when the reminder is still active. Past and
// resolved doses are never touched.
func (s *Scheduler) Update(ctx context.Context, r *storage.Reminder) error {
	unlock := s.locks.lock(r.ID)
	defer unlock()

	if err := s.resolveEnd(r); err != nil {
		return err
	}
	r.UpdatedAt = s.now()

	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if err := s.store.DeleteFuturePending(ctx, r.ID, s.now()); err != nil {
		return fmt.Errorf("update reminder %s: prune pending: %w", r.ID, err)
	}
	if r.Status != storage.StatusActive {
		return nil
	}
	return s.regenerate(ctx, r)
}

// Pause sets the reminder to paused and deletes its future pending doses.
func (s *Scheduler) Pause(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.stop(ctx, id, storage.StatusPaused)
}

// Finish sets the reminder to finished and deletes its future pending
// doses, upholding the invariant that finished reminders have none.
func (s *Scheduler) Finish(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	return s.stop(ctx, id, storage.StatusFinished)
}

// Resume reactivates a paused reminder and regenerates its future doses
// from now.
func (s *Scheduler) Resume(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	r, err := s.store.UpdateReminderStatus(ctx, id, storage.StatusActive)
	if err != nil {
		return fmt.Errorf("resume reminder: %w", err)
	}
	// Pause already pruned, but a prune here keeps resume idempotent under
	// retries.
	if err := s.store.DeleteFuturePending(ctx, id, s.now()); err != nil {
		return fmt.Errorf("resume reminder %s: prune pending: %w", id, err)
	}
	return s.regenerate(ctx, r)
}

// Delete soft-deletes the reminder, preserving dose history, and removes
// its future pending doses.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	now := s.now()
	if err := s.store.SoftDeleteReminder(ctx, id, now); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if err := s.store.DeleteFuturePending(ctx, id, now); err != nil {
		return fmt.Errorf("delete reminder %s: prune pending: %w", id, err)
	}
	s.logger.Info("reminder deleted", "id", id)
	return nil
}

func (s *Scheduler) stop(ctx context.Context, id string, status storage.ReminderStatus) error {
	if _, err := s.store.UpdateReminderStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set reminder %s: %w", status, err)
	}
	if err := s.store.DeleteFuturePending(ctx, id, s.now()); err != nil {
		return fmt.Errorf("set reminder %s: prune pending: %w", status, err)
	}
	return nil
}

// regenerate rebuilds the reminder's future window from max(now, start
// date) and inserts only occurrences strictly after now.
func (s *Scheduler) regenerate(ctx context.Context, r *storage.Reminder) error {
	now := s.now()
	genStart := now
	if r.StartDate.After(now) {
		genStart = r.StartDate
	}
	windowEnd := s.windowEnd(genStart, r.EndDate)

	occurrences, err := schedule.Generate(r.Schedule, r.StartTime, genStart, windowEnd)
	if err != nil {
		return fmt.Errorf("regenerate reminder %s: %w", r.ID, err)
	}

	var events []*storage.DoseEvent
	for _, at := range occurrences {
		if !at.After(now) {
			continue
		}
		events = append(events, &storage.DoseEvent{
			ID:          uuid.NewString(),
			ReminderID:  r.ID,
			UserID:      r.UserID,
			ProfileID:   r.ProfileID,
			ScheduledAt: at,
			Status:      storage.DosePending,
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := s.store.InsertDoseEvents(ctx, events); err != nil {
		return fmt.Errorf("regenerate reminder %s: insert doses: %w", r.ID, err)
	}
	s.logger.Info("reminder regenerated", "id", r.ID, "doses", len(events))
	return nil
}

// resolveEnd caches the effective end date on the reminder and checks it
// against the start date.
func (s *Scheduler) resolveEnd(r *storage.Reminder) error {
	end, present := schedule.ResolveEndDate(r.StartDate, r.Duration).Get()
	if !present {
		r.EndDate = nil
		return nil
	}
	if end.Before(r.StartDate) {
		return storage.NewError(storage.ErrInvalidInput,
			"end date %s is before start date %s",
			end.Format("2006-01-02"), r.StartDate.Format("2006-01-02"))
	}
	r.EndDate = &end
	return nil
}

// windowEnd computes the exclusive generation bound: 30 days out, capped by
// the end date, then advanced one day so the last calendar day is covered
// in full.
func (s *Scheduler) windowEnd(genStart time.Time, endDate *time.Time) time.Time {
	end := genStart.AddDate(0, 0, windowDays)
	if endDate != nil && endDate.Before(end) {
		end = *endDate
	}
	return end.AddDate(0, 0, 1)
}

// keyedMutex hands out one mutex per reminder id. Entries are refcounted
// and dropped once the last holder unlocks, so the map only holds ids with
// an operation in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
