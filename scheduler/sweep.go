package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dosier-app/dosier/schedule"
	"github.com/dosier-app/dosier/storage"
)

// SweepOutcome describes what the sweep did for one reminder.
type SweepOutcome string

const (
	// SweepUpdated means new doses were appended.
	SweepUpdated SweepOutcome = "updated"
	// SweepSufficient means the schedule head was still far enough out.
	SweepSufficient SweepOutcome = "skipped_sufficient_doses"
	// SweepNothingGenerated means the window produced no insertable doses
	// (end date reached, or everything already covered).
	SweepNothingGenerated SweepOutcome = "skipped_no_doses_generated"
	// SweepFailed means the store rejected the insert for this reminder.
	SweepFailed SweepOutcome = "error"
)

// SweepResult is the per-reminder outcome of a sweep run.
type SweepResult struct {
	ReminderID string       `json:"id"`
	Outcome    SweepOutcome `json:"status"`
	Inserted   int          `json:"count,omitempty"`
	Error      string       `json:"error,omitempty"`
	Err        error        `json:"-"`
}

func failResult(id string, err error) *SweepResult {
	return &SweepResult{ReminderID: id, Outcome: SweepFailed, Error: err.Error(), Err: err}
}

// Sweep extends the dose window of every active reminder whose schedule
// head is less than 7 days out, appending another 30 days of occurrences
// capped by the reminder's end date. It is meant to be invoked by an
// external periodic trigger (cron, task queue), giving reminders an
// effectively infinite horizon without unbounded storage. A failure on one
// reminder is reported in its result and does not stop the rest.
func (s *Scheduler) Sweep(ctx context.Context) ([]SweepResult, error) {
	reminders, err := s.store.ListActiveReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: list active reminders: %w", err)
	}

	now := s.now()
	threshold := now.AddDate(0, 0, headThresholdDays)

	var results []SweepResult
	for _, r := range reminders {
		res := s.sweepOne(ctx, r, now, threshold)
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (s *Scheduler) sweepOne(ctx context.Context, r *storage.Reminder, now, threshold time.Time) *SweepResult {
	unlock := s.locks.lock(r.ID)
	defer unlock()

	head, err := s.store.LatestDoseTime(ctx, r.ID)
	if err != nil {
		s.logger.Warn("sweep: latest dose lookup failed", "reminder", r.ID, "error", err)
		return failResult(r.ID, err)
	}

	scheduleHead := r.StartDate
	if head != nil {
		scheduleHead = *head
	}
	if !scheduleHead.Before(threshold) {
		return &SweepResult{ReminderID: r.ID, Outcome: SweepSufficient}
	}

	// A head in the past means the reminder sat paused or unattended;
	// resume from now rather than backfilling missed doses.
	genStart := scheduleHead
	if genStart.Before(now) {
		genStart = now
	}
	windowEnd := genStart.AddDate(0, 0, windowDays)
	if r.EndDate != nil && r.EndDate.Before(windowEnd) {
		windowEnd = *r.EndDate
	}
	if !genStart.Before(windowEnd) {
		// Treatment has run out; nothing left to schedule.
		return nil
	}

	occurrences, err := schedule.Generate(r.Schedule, r.StartTime, genStart, windowEnd)
	if err != nil {
		return failResult(r.ID, err)
	}

	var events []*storage.DoseEvent
	for _, at := range occurrences {
		if !at.After(now) {
			continue
		}
		if head != nil && !at.After(*head) {
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
		return &SweepResult{ReminderID: r.ID, Outcome: SweepNothingGenerated}
	}

	if err := s.store.InsertDoseEvents(ctx, events); err != nil {
		s.logger.Warn("sweep: insert failed", "reminder", r.ID, "error", err)
		return failResult(r.ID, err)
	}
	s.logger.Info("sweep: extended schedule",
		"reminder", r.ID, "medicine", r.MedicineName, "doses", len(events))
	return &SweepResult{ReminderID: r.ID, Outcome: SweepUpdated, Inserted: len(events)}
}
