package billing

import (
	"errors"
	"fmt"
)

// ErrMappingNotFound is returned when no resolution strategy can map a user
// to a Stripe customer.
var ErrMappingNotFound = errors.New("no stripe customer mapping found")

// ErrSnapshotNotFound is returned by the snapshot store when a customer has
// never been synced. Absence is not the same as "no subscription"; that case
// is an explicit snapshot with status "none".
var ErrSnapshotNotFound = errors.New("subscription snapshot not found")

// SyncError wraps any failure during a subscription sync. The cache is never
// partially written: a SyncError means the stored snapshot is unchanged.
type SyncError struct {
	CustomerID string
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("subscription sync failed for %s: %v", e.CustomerID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed Stripe API call outside the sync path
// (portal/checkout/provisioning).
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("stripe %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
