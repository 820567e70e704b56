package billing

import (
	"sort"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Subscription status values carried in snapshots. StatusNone marks a
// customer with no subscriptions at all, as opposed to a never-synced
// customer (no snapshot).
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusNone     = "none"
)

// statusPriority is the fixed ordering for multi-subscription customers.
// The first matching entry becomes the primary subscription.
var statusPriority = []string{StatusActive, StatusTrialing, StatusPastDue, StatusCanceled}

func statusRank(status string) int {
	for i, s := range statusPriority {
		if s == status {
			return i
		}
	}
	// Unrecognized statuses sort last.
	return len(statusPriority)
}

// sortSubscriptionsByPriority orders subscriptions by status priority.
// The sort is stable so Stripe's returned order breaks ties.
func sortSubscriptionsByPriority(subs []*stripe.Subscription) []*stripe.Subscription {
	sorted := append([]*stripe.Subscription(nil), subs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return statusRank(string(sorted[i].Status)) < statusRank(string(sorted[j].Status))
	})
	return sorted
}

// SubscriptionItem is one normalized subscription inside a snapshot.
type SubscriptionItem struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	PlanName          string `json:"planName"`
	PlanID            string `json:"planId"`
	RenewalDate       string `json:"renewalDate"`
	RenewalPeriod     string `json:"renewalPeriod"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	CancelAt          string `json:"cancelAt,omitempty"`
}

// Snapshot is the cached, denormalized view of a customer's subscription
// state. The top-level fields always mirror the first (highest-priority)
// entry of Subscriptions. Snapshots are written wholesale, never patched.
type Snapshot struct {
	StripeCustomerID     string             `json:"stripeCustomerId"`
	Status               string             `json:"status"`
	PlanName             string             `json:"planName,omitempty"`
	PlanID               string             `json:"planId,omitempty"`
	CurrentPeriodEnd     string             `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancelAtPeriodEnd"`
	Subscriptions        []SubscriptionItem `json:"subscriptions"`
	UpdatedAt            time.Time          `json:"updatedAt"`
	LastSyncedFromStripe time.Time          `json:"lastSyncedFromStripe,omitempty"`
}
