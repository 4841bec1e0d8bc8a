// Package gormstore implements storage.Store on a relational database
// through gorm. Rule and duration values are persisted as their wire
// tokens; the stock config is a JSON column.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dosier-app/dosier/storage"
)

// Store implements storage.Store on a gorm DB handle. The caller owns the
// handle and picks the driver.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps a gorm DB handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the backing tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&reminderRow{}, &doseEventRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) CreateReminder(ctx context.Context, r *storage.Reminder) error {
	row, err := toReminderRow(r)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (s *Store) UpdateReminder(ctx context.Context, r *storage.Reminder) error {
	row, err := toReminderRow(r)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&reminderRow{}).Where("id = ?", r.ID).Updates(row)
	if res.Error != nil {
		return fmt.Errorf("update reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NewError(storage.ErrNotFound, "reminder %s not found", r.ID)
	}
	return nil
}

func (s *Store) UpdateReminderStatus(ctx context.Context, id string, status storage.ReminderStatus) (*storage.Reminder, error) {
	res := s.db.WithContext(ctx).Model(&reminderRow{}).Where("id = ?", id).
		Update("status", string(status))
	if res.Error != nil {
		return nil, fmt.Errorf("update reminder status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	return s.GetReminder(ctx, id)
}

func (s *Store) UpdateReminderStock(ctx context.Context, id string, stock int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row reminderRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return wrapNotFound(err, "reminder %s", id)
		}
		cfg, err := row.stockConfig()
		if err != nil {
			return err
		}
		if cfg == nil {
			return storage.NewError(storage.ErrInvalidInput, "reminder %s has no stock tracking", id)
		}
		cfg.Stock = stock
		raw, err := marshalStock(cfg)
		if err != nil {
			return err
		}
		return tx.Model(&reminderRow{}).Where("id = ?", id).Update("stock_config", raw).Error
	})
}

func (s *Store) GetReminder(ctx context.Context, id string) (*storage.Reminder, error) {
	var row reminderRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "reminder %s", id)
	}
	return fromReminderRow(&row)
}

func (s *Store) ListRemindersByProfile(ctx context.Context, profileID string) ([]*storage.Reminder, error) {
	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND deleted_at IS NULL", profileID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return fromReminderRows(rows)
}

func (s *Store) ListSOSReminders(ctx context.Context, profileID string) ([]*storage.Reminder, error) {
	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND deleted_at IS NULL AND status <> ? AND frequency = ?",
			profileID, string(storage.StatusFinished), "sos").
		Order("medicine_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sos reminders: %w", err)
	}
	return fromReminderRows(rows)
}

func (s *Store) ListActiveReminders(ctx context.Context) ([]*storage.Reminder, error) {
	var rows []reminderRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND deleted_at IS NULL", string(storage.StatusActive)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	return fromReminderRows(rows)
}

func (s *Store) SoftDeleteReminder(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&reminderRow{}).Where("id = ?", id).
		Update("deleted_at", at)
	if res.Error != nil {
		return fmt.Errorf("soft delete reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NewError(storage.ErrNotFound, "reminder %s not found", id)
	}
	return nil
}

func (s *Store) InsertDoseEvents(ctx context.Context, events []*storage.DoseEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]doseEventRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, toDoseEventRow(e))
	}
	// One multi-row insert inside a transaction: the batch lands whole or
	// not at all.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("insert dose events: %w", err)
	}
	return nil
}

func (s *Store) DeleteFuturePending(ctx context.Context, reminderID string, cutoff time.Time) error {
	err := s.db.WithContext(ctx).
		Where("reminder_id = ? AND status = ? AND scheduled_at > ?",
			reminderID, string(storage.DosePending), cutoff).
		Delete(&doseEventRow{}).Error
	if err != nil {
		return fmt.Errorf("delete future pending: %w", err)
	}
	return nil
}

func (s *Store) GetDoseEvent(ctx context.Context, id string) (*storage.DoseEvent, error) {
	var row doseEventRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, "dose event %s", id)
	}
	return fromDoseEventRow(&row), nil
}

func (s *Store) ListDoseEventsByRange(ctx context.Context, profileID string, start, end time.Time) ([]*storage.DoseEvent, error) {
	var rows []doseEventRow
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND scheduled_at >= ? AND scheduled_at <= ?", profileID, start, end).
		Order("scheduled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list dose events: %w", err)
	}
	return fromDoseEventRows(rows), nil
}

func (s *Store) ListOverduePending(ctx context.Context, profileID string, before time.Time) ([]*storage.DoseEvent, error) {
	var rows []doseEventRow
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND status = ? AND scheduled_at < ?",
			profileID, string(storage.DosePending), before).
		Order("scheduled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list overdue pending: %w", err)
	}
	return fromDoseEventRows(rows), nil
}

func (s *Store) LatestDoseTime(ctx context.Context, reminderID string) (*time.Time, error) {
	var row doseEventRow
	err := s.db.WithContext(ctx).
		Where("reminder_id = ?", reminderID).
		Order("scheduled_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest dose time: %w", err)
	}
	t := row.ScheduledAt
	return &t, nil
}

func (s *Store) UpdateDoseStatus(ctx context.Context, id string, status storage.DoseStatus, takenAt *time.Time, stockConsumed bool) error {
	res := s.db.WithContext(ctx).Model(&doseEventRow{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "taken_at": takenAt, "stock_consumed": stockConsumed})
	if res.Error != nil {
		return fmt.Errorf("update dose status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NewError(storage.ErrNotFound, "dose event %s not found", id)
	}
	return nil
}

func (s *Store) RescheduleDoseEvent(ctx context.Context, id string, newTime time.Time) error {
	res := s.db.WithContext(ctx).Model(&doseEventRow{}).Where("id = ?", id).
		Updates(map[string]any{"scheduled_at": newTime, "is_rescheduled": true})
	if res.Error != nil {
		return fmt.Errorf("reschedule dose event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NewError(storage.ErrNotFound, "dose event %s not found", id)
	}
	return nil
}

func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.NewError(storage.ErrNotFound, format+" not found", args...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
