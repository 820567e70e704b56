package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FreshnessWindow is how long a snapshot may be served without resyncing
// from Stripe.
const FreshnessWindow = 5 * time.Minute

const snapshotKeyPrefix = "subscription:snapshot:"

// SnapshotStore persists subscription snapshots in a key-value medium keyed
// by Stripe customer ID. Snapshots are serialized as a single JSON blob so
// the nested subscription list round-trips losslessly.
type SnapshotStore struct {
	rdb *redis.Client
}

// NewSnapshotStore creates a snapshot store backed by the given Redis client.
func NewSnapshotStore(rdb *redis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

func snapshotKey(customerID string) string {
	return snapshotKeyPrefix + customerID
}

// Get loads the snapshot for a customer. Returns ErrSnapshotNotFound when the
// customer has never been synced.
func (s *SnapshotStore) Get(ctx context.Context, customerID string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot for %s: %w", customerID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", customerID, err)
	}
	return &snap, nil
}

// Put overwrites the customer's snapshot wholesale and stamps UpdatedAt.
func (s *SnapshotStore) Put(ctx context.Context, snap *Snapshot) error {
	snap.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", snap.StripeCustomerID, err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(snap.StripeCustomerID), raw, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot for %s: %w", snap.StripeCustomerID, err)
	}
	return nil
}

// IsFresh reports whether a snapshot is recent enough to serve without a
// resync. Pure function of the record and the given clock; a snapshot aged
// exactly at the window is stale.
func IsFresh(snap *Snapshot, now time.Time) bool {
	if snap == nil || snap.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(snap.UpdatedAt) < FreshnessWindow
}
