package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosier-app/dosier/dose"
	"github.com/dosier-app/dosier/schedule"
	"github.com/dosier-app/dosier/storage"
	"github.com/dosier-app/dosier/storage/memory"
)

func TestDispatcherRoutesActions(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	r := &storage.Reminder{
		ID:           "rem-1",
		UserID:       "user-1",
		ProfileID:    "profile-1",
		MedicineName: "Ibuprofen",
		Schedule:     schedule.Rule{Kind: schedule.KindInterval, IntervalHours: 8},
		StartDate:    syncNow.AddDate(0, 0, -1),
		StartTime:    schedule.TimeOfDay{Hour: 8},
		Status:       storage.StatusActive,
	}
	require.NoError(t, store.CreateReminder(ctx, r))
	require.NoError(t, store.InsertDoseEvents(ctx, []*storage.DoseEvent{
		{ID: "d-take", ReminderID: "rem-1", UserID: "user-1", ProfileID: "profile-1",
			ScheduledAt: syncNow.Add(-time.Hour), Status: storage.DosePending},
		{ID: "d-skip", ReminderID: "rem-1", UserID: "user-1", ProfileID: "profile-1",
			ScheduledAt: syncNow.Add(-time.Hour), Status: storage.DosePending},
		{ID: "d-snooze", ReminderID: "rem-1", UserID: "user-1", ProfileID: "profile-1",
			ScheduledAt: syncNow.Add(-time.Hour), Status: storage.DosePending},
	}))

	lifecycle := dose.NewLifecycle(store, dose.WithClock(func() time.Time { return syncNow }))
	d := NewDispatcher(lifecycle)

	require.NoError(t, d.Handle(ctx, Action{Kind: ActionTake, DoseID: "d-take"}))
	require.NoError(t, d.Handle(ctx, Action{Kind: ActionSkip, DoseID: "d-skip"}))
	until := syncNow.Add(15 * time.Minute)
	require.NoError(t, d.Handle(ctx, Action{Kind: ActionSnooze, DoseID: "d-snooze", SnoozeUntil: until}))

	got, err := store.GetDoseEvent(ctx, "d-take")
	require.NoError(t, err)
	assert.Equal(t, storage.DoseTaken, got.Status)

	got, err = store.GetDoseEvent(ctx, "d-skip")
	require.NoError(t, err)
	assert.Equal(t, storage.DoseSkipped, got.Status)

	got, err = store.GetDoseEvent(ctx, "d-snooze")
	require.NoError(t, err)
	assert.Equal(t, storage.DosePending, got.Status)
	assert.Equal(t, until, got.ScheduledAt)
	assert.True(t, got.IsRescheduled)

	err = d.Handle(ctx, Action{Kind: "dismiss", DoseID: "d-take"})
	assert.Error(t, err)
}
