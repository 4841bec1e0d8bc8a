// Package notify reconciles pending dose events against a host
// notification scheduler and routes user actions on delivered
// notifications back into the dose lifecycle. The host scheduler itself
// (APNs, local notifications, a push gateway) sits behind the Notifier
// interface.
package notify

import (
	"context"
	"hash/fnv"
	"time"
)

// Notification is one scheduled reminder delivery. Key is the stable
// integer identity the host scheduler tracks; it is derived from the dose
// event id so repeated syncs address the same slot.
type Notification struct {
	Key    uint32
	DoseID string
	Title  string
	Body   string
	At     time.Time
}

// Notifier is the host notification scheduler boundary.
type Notifier interface {
	// Scheduled returns every currently scheduled notification as a map
	// of key to fire time.
	Scheduled(ctx context.Context) (map[uint32]time.Time, error)
	// Schedule registers one notification for delivery at n.At.
	Schedule(ctx context.Context, n Notification) error
	// CancelBatch cancels the notifications with the given keys.
	CancelBatch(ctx context.Context, keys []uint32) error
}

// Key derives the stable notification key for a dose event id.
func Key(doseID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(doseID))
	return h.Sum32()
}
