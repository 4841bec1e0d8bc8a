package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosier-app/dosier/schedule"
	"github.com/dosier-app/dosier/storage"
)

func newReminder(id, profileID string) *storage.Reminder {
	return &storage.Reminder{
		ID:           id,
		UserID:       "user-1",
		ProfileID:    profileID,
		MedicineName: "Amoxicillin",
		Schedule:     schedule.Rule{Kind: schedule.KindInterval, IntervalHours: 8},
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		StartTime:    schedule.TimeOfDay{Hour: 8},
		Status:       storage.StatusActive,
	}
}

func newDose(id, reminderID string, at time.Time, status storage.DoseStatus) *storage.DoseEvent {
	return &storage.DoseEvent{
		ID:          id,
		ReminderID:  reminderID,
		UserID:      "user-1",
		ProfileID:   "profile-1",
		ScheduledAt: at,
		Status:      status,
	}
}

func TestReminderCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateReminder(ctx, newReminder("r1", "p1")))

	err := s.CreateReminder(ctx, newReminder("r1", "p1"))
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ErrAlreadyExists, se.Type)

	_, err = s.GetReminder(ctx, "missing")
	assert.True(t, storage.IsNotFound(err))

	got, err := s.GetReminder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", got.MedicineName)

	got.MedicineName = "Paracetamol"
	require.NoError(t, s.UpdateReminder(ctx, got))
	got, err = s.GetReminder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", got.MedicineName)
}

func TestCreateRejectsEmptyID(t *testing.T) {
	s := New()
	err := s.CreateReminder(context.Background(), newReminder("", "p1"))
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ErrInvalidInput, se.Type)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newReminder("r1", "p1")
	r.Stock = &storage.StockConfig{Stock: 10}
	require.NoError(t, s.CreateReminder(ctx, r))

	got, err := s.GetReminder(ctx, "r1")
	require.NoError(t, err)
	got.MedicineName = "mutated"
	got.Stock.Stock = 0

	fresh, err := s.GetReminder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin", fresh.MedicineName)
	assert.Equal(t, 10, fresh.Stock.Stock)
}

func TestUpdateReminderStock(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newReminder("r1", "p1")
	r.Stock = &storage.StockConfig{Stock: 10}
	require.NoError(t, s.CreateReminder(ctx, r))
	require.NoError(t, s.UpdateReminderStock(ctx, "r1", 7))

	got, err := s.GetReminder(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock.Stock)

	// Stock updates on an untracked reminder are a caller bug.
	require.NoError(t, s.CreateReminder(ctx, newReminder("r2", "p1")))
	err = s.UpdateReminderStock(ctx, "r2", 5)
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ErrInvalidInput, se.Type)
}

func TestListRemindersByProfile(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newReminder("r1", "p1")
	a.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newReminder("r2", "p1")
	b.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	other := newReminder("r3", "p2")
	require.NoError(t, s.CreateReminder(ctx, a))
	require.NoError(t, s.CreateReminder(ctx, b))
	require.NoError(t, s.CreateReminder(ctx, other))

	list, err := s.ListRemindersByProfile(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID, "newest first")
	assert.Equal(t, "r1", list[1].ID)

	// Soft-deleted reminders drop out of listings but stay readable.
	require.NoError(t, s.SoftDeleteReminder(ctx, "r2", time.Now()))
	list, err = s.ListRemindersByProfile(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := s.GetReminder(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, got.Deleted())
}

func TestListSOSReminders(t *testing.T) {
	s := New()
	ctx := context.Background()

	sos1 := newReminder("r1", "p1")
	sos1.MedicineName = "Zolmitriptan"
	sos1.Schedule = schedule.Rule{Kind: schedule.KindSOS}
	sos2 := newReminder("r2", "p1")
	sos2.MedicineName = "Aspirin"
	sos2.Schedule = schedule.Rule{Kind: schedule.KindSOS}
	finished := newReminder("r3", "p1")
	finished.Schedule = schedule.Rule{Kind: schedule.KindSOS}
	finished.Status = storage.StatusFinished
	scheduled := newReminder("r4", "p1")
	require.NoError(t, s.CreateReminder(ctx, sos1))
	require.NoError(t, s.CreateReminder(ctx, sos2))
	require.NoError(t, s.CreateReminder(ctx, finished))
	require.NoError(t, s.CreateReminder(ctx, scheduled))

	list, err := s.ListSOSReminders(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Aspirin", list[0].MedicineName, "sorted by medicine name")
	assert.Equal(t, "Zolmitriptan", list[1].MedicineName)
}

func TestInsertDoseEventsIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("d1", "r1", base, storage.DosePending),
	}))

	// The second batch collides on d1: nothing from it may land.
	err := s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("d2", "r1", base.Add(8*time.Hour), storage.DosePending),
		newDose("d1", "r1", base, storage.DosePending),
	})
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ErrAlreadyExists, se.Type)

	_, err = s.GetDoseEvent(ctx, "d2")
	assert.True(t, storage.IsNotFound(err))
}

func TestDeleteFuturePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	cutoff := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	taken := cutoff.Add(-time.Hour)
	doses := []*storage.DoseEvent{
		newDose("past-pending", "r1", cutoff.Add(-24*time.Hour), storage.DosePending),
		newDose("past-taken", "r1", cutoff.Add(-48*time.Hour), storage.DoseTaken),
		newDose("future-pending", "r1", cutoff.Add(24*time.Hour), storage.DosePending),
		newDose("future-taken", "r1", cutoff.Add(48*time.Hour), storage.DoseTaken),
		newDose("other-reminder", "r2", cutoff.Add(24*time.Hour), storage.DosePending),
	}
	doses[1].TakenAt = &taken
	require.NoError(t, s.InsertDoseEvents(ctx, doses))

	require.NoError(t, s.DeleteFuturePending(ctx, "r1", cutoff))

	_, err := s.GetDoseEvent(ctx, "future-pending")
	assert.True(t, storage.IsNotFound(err), "only future pending doses of r1 are deleted")
	for _, id := range []string{"past-pending", "past-taken", "future-taken", "other-reminder"} {
		_, err := s.GetDoseEvent(ctx, id)
		assert.NoError(t, err, "%s must survive", id)
	}
}

func TestListDoseEventsByRangeInclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("before", "r1", start.Add(-time.Second), storage.DosePending),
		newDose("at-start", "r1", start, storage.DosePending),
		newDose("middle", "r1", start.Add(24*time.Hour), storage.DosePending),
		newDose("at-end", "r1", end, storage.DosePending),
		newDose("after", "r1", end.Add(time.Second), storage.DosePending),
	}))

	got, err := s.ListDoseEventsByRange(ctx, "profile-1", start, end)
	require.NoError(t, err)
	require.Len(t, got, 3, "both bounds are inclusive")
	assert.Equal(t, "at-start", got[0].ID)
	assert.Equal(t, "middle", got[1].ID)
	assert.Equal(t, "at-end", got[2].ID)
}

func TestListOverduePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("overdue", "r1", now.Add(-time.Hour), storage.DosePending),
		newDose("resolved", "r1", now.Add(-2*time.Hour), storage.DoseTaken),
		newDose("upcoming", "r1", now.Add(time.Hour), storage.DosePending),
	}))

	got, err := s.ListOverduePending(ctx, "profile-1", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "overdue", got[0].ID)
}

func TestLatestDoseTime(t *testing.T) {
	s := New()
	ctx := context.Background()

	latest, err := s.LatestDoseTime(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, latest, "no doses yet")

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("d1", "r1", base, storage.DoseTaken),
		newDose("d2", "r1", base.AddDate(0, 0, 5), storage.DosePending),
		newDose("d3", "r1", base.AddDate(0, 0, 2), storage.DosePending),
	}))

	latest, err = s.LatestDoseTime(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.AddDate(0, 0, 5), *latest)
}

func TestDoseStatusTransitions(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDoseEvents(ctx, []*storage.DoseEvent{
		newDose("d1", "r1", at, storage.DosePending),
	}))

	taken := at.Add(5 * time.Minute)
	require.NoError(t, s.UpdateDoseStatus(ctx, "d1", storage.DoseTaken, &taken, true))
	got, err := s.GetDoseEvent(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, storage.DoseTaken, got.Status)
	require.NotNil(t, got.TakenAt)
	assert.Equal(t, taken, *got.TakenAt)
	assert.True(t, got.StockConsumed)

	require.NoError(t, s.UpdateDoseStatus(ctx, "d1", storage.DosePending, nil, false))
	got, err = s.GetDoseEvent(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, storage.DosePending, got.Status)
	assert.Nil(t, got.TakenAt)
	assert.False(t, got.StockConsumed)

	newTime := at.Add(time.Hour)
	require.NoError(t, s.RescheduleDoseEvent(ctx, "d1", newTime))
	got, err = s.GetDoseEvent(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, newTime, got.ScheduledAt)
	assert.True(t, got.IsRescheduled)

	assert.True(t, storage.IsNotFound(s.UpdateDoseStatus(ctx, "missing", storage.DoseTaken, nil, false)))
	assert.True(t, storage.IsNotFound(s.RescheduleDoseEvent(ctx, "missing", newTime)))
}
