// Package storage defines the persistence boundary of the dose engine:
// the persisted model types, the Store interface the orchestration layers
// are written against, and the error taxonomy store implementations must
// use. Implementations live in subpackages (memory, gormstore).
package storage

import (
	"time"

	"github.com/dosier-app/dosier/schedule"
)

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	StatusActive   ReminderStatus = "active"
	StatusPaused   ReminderStatus = "paused"
	StatusFinished ReminderStatus = "finished"
)

// DoseStatus is the lifecycle state of a single dose event.
type DoseStatus string

const (
	DosePending DoseStatus = "pending"
	DoseTaken   DoseStatus = "taken"
	DoseSkipped DoseStatus = "skipped"
)

// MedicineIcon is the presentation icon of a medicine.
type MedicineIcon string

const (
	IconCapsule   MedicineIcon = "capsule"
	IconTablet    MedicineIcon = "tablet"
	IconSyrup     MedicineIcon = "syrup"
	IconInjection MedicineIcon = "injection"
	IconDrops     MedicineIcon = "drops"
	IconInhaler   MedicineIcon = "inhaler"
	IconCream     MedicineIcon = "cream"
	IconPowder    MedicineIcon = "powder"
	IconOther     MedicineIcon = "other"
)

// StockConfig is optional inventory tracking for a reminder. It is advisory
// to the UI except for the decrement applied when a dose is taken.
type StockConfig struct {
	Stock          int  `json:"stock"`
	AlertEnabled   bool `json:"stockAlertEnabled"`
	AlertThreshold int  `json:"stockThreshold"`
}

// Reminder is a recurring treatment definition.
type Reminder struct {
	ID           string
	UserID       string
	ProfileID    string
	MedicineName string
	// Dose is free text so fractional and compound notations survive
	// ("1/2", "2.5").
	Dose        string
	Unit        string
	Icon        MedicineIcon
	Schedule    schedule.Rule
	Duration    schedule.Duration
	StartDate   time.Time // calendar date, no time component
	StartTime   schedule.TimeOfDay
	EndDate     *time.Time // resolved from Duration at write time, nil = open-ended
	Status      ReminderStatus
	Indications string
	Stock       *StockConfig
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Deleted reports whether the reminder has been soft-deleted.
func (r *Reminder) Deleted() bool { return r.DeletedAt != nil }

// DoseEvent is one concrete, timestamped occurrence of a reminder.
type DoseEvent struct {
	ID          string
	ReminderID  string
	UserID      string
	ProfileID   string
	ScheduledAt time.Time
	Status      DoseStatus
	// TakenAt records when the dose was resolved; for skipped doses it
	// records the skip time.
	TakenAt       *time.Time
	IsRescheduled bool
	// StockConsumed records whether taking this dose decremented the
	// reminder's stock, so an undo restores only what was consumed.
	StockConsumed bool
}

// Resolved reports whether the dose has reached a terminal status.
func (d *DoseEvent) Resolved() bool { return d.Status != DosePending }
