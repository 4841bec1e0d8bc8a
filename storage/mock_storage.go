package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing.
type MockStore struct {
	mock.Mock
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) CreateReminder(ctx context.Context, r *Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockStore) UpdateReminder(ctx context.Context, r *Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockStore) UpdateReminderStatus(ctx context.Context, id string, status ReminderStatus) (*Reminder, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reminder), args.Error(1)
}

func (m *MockStore) UpdateReminderStock(ctx context.Context, id string, stock int) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

func (m *MockStore) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reminder), args.Error(1)
}

func (m *MockStore) ListRemindersByProfile(ctx context.Context, profileID string) ([]*Reminder, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Reminder), args.Error(1)
}

func (m *MockStore) ListSOSReminders(ctx context.Context, profileID string) ([]*Reminder, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Reminder), args.Error(1)
}

func (m *MockStore) ListActiveReminders(ctx context.Context) ([]*Reminder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Reminder), args.Error(1)
}

func (m *MockStore) SoftDeleteReminder(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockStore) InsertDoseEvents(ctx context.Context, events []*DoseEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockStore) DeleteFuturePending(ctx context.Context, reminderID string, cutoff time.Time) error {
	args := m.Called(ctx, reminderID, cutoff)
	return args.Error(0)
}

func (m *MockStore) GetDoseEvent(ctx context.Context, id string) (*DoseEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DoseEvent), args.Error(1)
}

func (m *MockStore) ListDoseEventsByRange(ctx context.Context, profileID string, start, end time.Time) ([]*DoseEvent, error) {
	args := m.Called(ctx, profileID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DoseEvent), args.Error(1)
}

func (m *MockStore) ListOverduePending(ctx context.Context, profileID string, before time.Time) ([]*DoseEvent, error) {
	args := m.Called(ctx, profileID, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DoseEvent), args.Error(1)
}

func (m *MockStore) LatestDoseTime(ctx context.Context, reminderID string) (*time.Time, error) {
	args := m.Called(ctx, reminderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockStore) UpdateDoseStatus(ctx context.Context, id string, status DoseStatus, takenAt *time.Time, stockConsumed bool) error {
	args := m.Called(ctx, id, status, takenAt, stockConsumed)
	return args.Error(0)
}

func (m *MockStore) RescheduleDoseEvent(ctx context.Context, id string, newTime time.Time) error {
	args := m.Called(ctx, id, newTime)
	return args.Error(0)
}
