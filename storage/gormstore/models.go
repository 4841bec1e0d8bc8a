package gormstore

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/dosier-app/dosier/schedule"
	"github.com/dosier-app/dosier/storage"
)

// reminderRow is the reminders table. Frequency, duration and start time
// are stored as their wire tokens; stock config is JSON.
type reminderRow struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	UserID       string `gorm:"index;not null"`
	ProfileID    string `gorm:"index"`
	MedicineName string `gorm:"not null"`
	Dose         string
	Unit         string
	MedicineIcon string
	Frequency    string `gorm:"not null"`
	Duration     string `gorm:"not null"`
	StartDate    time.Time
	StartTime    string
	EndDate      *time.Time
	Status       string `gorm:"index"`
	Indications  string
	StockConfig  datatypes.JSON
	DeletedAt    *time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (reminderRow) TableName() string { return "reminders" }

// doseEventRow is the dose_events table.
type doseEventRow struct {
	ID            string     `gorm:"type:uuid;primaryKey"`
	ReminderID    string     `gorm:"index;not null"`
	UserID        string     `gorm:"not null"`
	ProfileID     string     `gorm:"index"`
	ScheduledAt   time.Time  `gorm:"index;not null"`
	Status        string     `gorm:"index"`
	TakenAt       *time.Time
	IsRescheduled bool
	StockConsumed bool
}

func (doseEventRow) TableName() string { return "dose_events" }

func toReminderRow(r *storage.Reminder) (*reminderRow, error) {
	raw, err := marshalStock(r.Stock)
	if err != nil {
		return nil, err
	}
	return &reminderRow{
		ID:           r.ID,
		UserID:       r.UserID,
		ProfileID:    r.ProfileID,
		MedicineName: r.MedicineName,
		Dose:         r.Dose,
		Unit:         r.Unit,
		MedicineIcon: string(r.Icon),
		Frequency:    r.Schedule.String(),
		Duration:     r.Duration.String(),
		StartDate:    r.StartDate,
		StartTime:    r.StartTime.String(),
		EndDate:      r.EndDate,
		Status:       string(r.Status),
		Indications:  r.Indications,
		StockConfig:  raw,
		DeletedAt:    r.DeletedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func fromReminderRow(row *reminderRow) (*storage.Reminder, error) {
	rule, err := schedule.ParseRule(row.Frequency)
	if err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "reminder %s: %v", row.ID, err)
	}
	duration, err := schedule.ParseDuration(row.Duration)
	if err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "reminder %s: %v", row.ID, err)
	}
	startTime, err := schedule.ParseTimeOfDay(row.StartTime)
	if err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "reminder %s: %v", row.ID, err)
	}
	cfg, err := row.stockConfig()
	if err != nil {
		return nil, err
	}
	return &storage.Reminder{
		ID:           row.ID,
		UserID:       row.UserID,
		ProfileID:    row.ProfileID,
		MedicineName: row.MedicineName,
		Dose:         row.Dose,
		Unit:         row.Unit,
		Icon:         storage.MedicineIcon(row.MedicineIcon),
		Schedule:     rule,
		Duration:     duration,
		StartDate:    row.StartDate,
		StartTime:    startTime,
		EndDate:      row.EndDate,
		Status:       storage.ReminderStatus(row.Status),
		Indications:  row.Indications,
		Stock:        cfg,
		DeletedAt:    row.DeletedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func fromReminderRows(rows []reminderRow) ([]*storage.Reminder, error) {
	out := make([]*storage.Reminder, 0, len(rows))
	for i := range rows {
		r, err := fromReminderRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (row *reminderRow) stockConfig() (*storage.StockConfig, error) {
	if len(row.StockConfig) == 0 {
		return nil, nil
	}
	var cfg storage.StockConfig
	if err := json.Unmarshal(row.StockConfig, &cfg); err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "reminder %s: bad stock config: %v", row.ID, err)
	}
	return &cfg, nil
}

func marshalStock(cfg *storage.StockConfig) (datatypes.JSON, error) {
	if cfg == nil {
		return nil, nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, storage.NewError(storage.ErrInvalidInput, "bad stock config: %v", err)
	}
	return raw, nil
}

func toDoseEventRow(e *storage.DoseEvent) doseEventRow {
	return doseEventRow{
		ID:            e.ID,
		ReminderID:    e.ReminderID,
		UserID:        e.UserID,
		ProfileID:     e.ProfileID,
		ScheduledAt:   e.ScheduledAt,
		Status:        string(e.Status),
		TakenAt:       e.TakenAt,
		IsRescheduled: e.IsRescheduled,
		StockConsumed: e.StockConsumed,
	}
}

func fromDoseEventRow(row *doseEventRow) *storage.DoseEvent {
	return &storage.DoseEvent{
		ID:            row.ID,
		ReminderID:    row.ReminderID,
		UserID:        row.UserID,
		ProfileID:     row.ProfileID,
		ScheduledAt:   row.ScheduledAt,
		Status:        storage.DoseStatus(row.Status),
		TakenAt:       row.TakenAt,
		IsRescheduled: row.IsRescheduled,
		StockConsumed: row.StockConsumed,
	}
}

func fromDoseEventRows(rows []doseEventRow) []*storage.DoseEvent {
	out := make([]*storage.DoseEvent, 0, len(rows))
	for i := range rows {
		out = append(out, fromDoseEventRow(&rows[i]))
	}
	return out
}
