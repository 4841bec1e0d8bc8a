// Package memory provides an in-memory Store implementation. It backs the
// package tests and small single-process deployments; everything is kept in
// maps under one RWMutex.
package memory

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dosier-app/dosier/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	mu        sync.RWMutex
	reminders map[string]*storage.Reminder
	doses     map[string]*storage.DoseEvent
	logger    *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option represents a configuration option for the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		reminders: make(map[string]*storage.Reminder),
		doses:     make(map[string]*storage.DoseEvent),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateReminder(_ context.Context, r *storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return storage.NewError(storage.ErrInvalidInput, "reminder id is empty")
	}
	if _, exists := s.reminders[r.ID]; exists {
		return storage.NewError(storage.ErrAlreadyExists, "reminder %s already exists", r.ID)
	}
	s.reminders[r.ID] = cloneReminder(r)
	s.logger.Debug("reminder created", "id", r.ID, "medicine", r.MedicineName)
	return nil
}

func (s *Store) UpdateReminder(_ context.Context, r *storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[r.ID]; !exists {
		return storage.NewError(storage.ErrNotFound, "reminder %s not found", r.ID)
	}
	s.reminders[r.ID] = cloneReminder(r)
	return nil
}

func (s *Store) UpdateReminderStatus(_ context.Context, id string, status storage.ReminderStatus) (*storage.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reminders[id]
	if !exists {
		return nil, storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return cloneReminder(r), nil
}

func (s *Store) UpdateReminderStock(_ context.Context, id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reminders[id]
	if !exists {
		return storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	if r.Stock == nil {
		return storage.NewError(storage.ErrInvalidInput, "reminder %s has no stock tracking", id)
	}
	r.Stock.Stock = stock
	r.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetReminder(_ context.Context, id string) (*storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reminders[id]
	if !exists {
		return nil, storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	return cloneReminder(r), nil
}

func (s *Store) ListRemindersByProfile(_ context.Context, profileID string) ([]*storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Reminder
	for _, r := range s.reminders {
		if r.ProfileID == profileID && !r.Deleted() {
			out = append(out, cloneReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListSOSReminders(_ context.Context, profileID string) ([]*storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Reminder
	for _, r := range s.reminders {
		if r.ProfileID == profileID && !r.Deleted() &&
			r.Status != storage.StatusFinished && r.Schedule.IsSOS() {
			out = append(out, cloneReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicineName < out[j].MedicineName })
	return out, nil
}

func (s *Store) ListActiveReminders(_ context.Context) ([]*storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Reminder
	for _, r := range s.reminders {
		if r.Status == storage.StatusActive && !r.Deleted() {
			out = append(out, cloneReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SoftDeleteReminder(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reminders[id]
	if !exists {
		return storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	r.DeletedAt = &at
	r.UpdatedAt = time.Now()
	s.logger.Debug("reminder soft-deleted", "id", id)
	return nil
}

func (s *Store) InsertDoseEvents(_ context.Context, events []*storage.DoseEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map so a failure
	// inserts nothing.
	for _, e := range events {
		if e.ID == "" {
			return storage.NewError(storage.ErrInvalidInput, "dose event id is empty")
		}
		if _, exists := s.doses[e.ID]; exists {
			return storage.NewError(storage.ErrAlreadyExists, "dose event %s already exists", e.ID)
		}
	}
	for _, e := range events {
		s.doses[e.ID] = cloneDose(e)
	}
	s.logger.Debug("dose events inserted", "count", len(events))
	return nil
}

func (s *Store) DeleteFuturePending(_ context.Context, reminderID string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, d := range s.doses {
		if d.ReminderID == reminderID && d.Status == storage.DosePending && d.ScheduledAt.After(cutoff) {
			delete(s.doses, id)
		}
	}
	return nil
}

func (s *Store) GetDoseEvent(_ context.Context, id string) (*storage.DoseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.doses[id]
	if !exists {
		return nil, storage.NewError(storage.ErrNotFound, "dose event %s not found", id)
	}
	return cloneDose(d), nil
}

func (s *Store) ListDoseEventsByRange(_ context.Context, profileID string, start, end time.Time) ([]*storage.DoseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.DoseEvent
	for _, d := range s.doses {
		if d.ProfileID != profileID {
			continue
		}
		if d.ScheduledAt.Before(start) || d.ScheduledAt.After(end) {
			continue
		}
		out = append(out, cloneDose(d))
	}
	sortByScheduledAt(out)
	return out, nil
}

func (s *Store) ListOverduePending(_ context.Context, profileID string, before time.Time) ([]*storage.DoseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.DoseEvent
	for _, d := range s.doses {
		if d.ProfileID == profileID && d.Status == storage.DosePending && d.ScheduledAt.Before(before) {
			out = append(out, cloneDose(d))
		}
	}
	sortByScheduledAt(out)
	return out, nil
}

func (s *Store) LatestDoseTime(_ context.Context, reminderID string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *time.Time
	for _, d := range s.doses {
		if d.ReminderID != reminderID {
			continue
		}
		if latest == nil || d.ScheduledAt.After(*latest) {
			t := d.ScheduledAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *Store) UpdateDoseStatus(_ context.Context, id string, status storage.DoseStatus, takenAt *time.Time, stockConsumed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.doses[id]
	if !exists {
		return storage.NewError(storage.ErrNotFound, "dose event %s not found", id)
	}
	d.Status = status
	d.TakenAt = copyTime(takenAt)
	d.StockConsumed = stockConsumed
	return nil
}

func (s *Store) RescheduleDoseEvent(_ context.Context, id string, newTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.doses[id]
	if !exists {
		return storage.NewError(storage.ErrNotFound, "dose event %s not found", id)
	}
	d.ScheduledAt = newTime
	d.IsRescheduled = true
	return nil
}

func sortByScheduledAt(events []*storage.DoseEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].ScheduledAt.Before(events[j].ScheduledAt)
	})
}

func cloneReminder(r *storage.Reminder) *storage.Reminder {
	c := *r
	if r.Stock != nil {
		stock := *r.Stock
		c.Stock = &stock
	}
	c.EndDate = copyTime(r.EndDate)
	c.DeletedAt = copyTime(r.DeletedAt)
	if r.Schedule.Weekdays != nil {
		c.Schedule.Weekdays = append([]time.Weekday(nil), r.Schedule.Weekdays...)
	}
	return &c
}

func cloneDose(d *storage.DoseEvent) *storage.DoseEvent {
	c := *d
	c.TakenAt = copyTime(d.TakenAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
