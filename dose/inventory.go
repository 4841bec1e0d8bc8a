package dose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dosier-app/dosier/storage"
)

// InventoryLedger applies stock side effects of dose transitions. Stock
// tracking is optional per reminder; every method is a no-op when it is
// off.
type InventoryLedger struct {
	store  storage.Store
	logger *slog.Logger
}

// Decrement takes one unit off the reminder's stock. No-op when tracking
// is disabled or stock is already zero; stock never goes negative.
func (inv *InventoryLedger) Decrement(ctx context.Context, r *storage.Reminder) error {
	if r.Stock == nil || r.Stock.Stock <= 0 {
		return nil
	}
	newStock := r.Stock.Stock - 1
	if err := inv.store.UpdateReminderStock(ctx, r.ID, newStock); err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if r.Stock.AlertEnabled && newStock <= r.Stock.AlertThreshold {
		inv.logger.Info("stock below threshold",
			"reminder", r.ID, "medicine", r.MedicineName, "stock", newStock)
	}
	return nil
}

// Restore puts one unit back after an undo of a taken dose.
func (inv *InventoryLedger) Restore(ctx context.Context, r *storage.Reminder) error {
	if r.Stock == nil {
		return nil
	}
	if err := inv.store.UpdateReminderStock(ctx, r.ID, r.Stock.Stock+1); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

// StockLow reports whether the reminder's stock has reached its alert
// threshold. Advisory only; consumers use it for warning badges and
// notification copy.
func StockLow(r *storage.Reminder) bool {
	return r.Stock != nil && r.Stock.AlertEnabled && r.Stock.Stock <= r.Stock.AlertThreshold
}
