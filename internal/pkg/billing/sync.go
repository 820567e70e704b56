package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// SyncEngine recomputes a customer's full subscription snapshot from Stripe
// and overwrites the cached copy. Every writer recomputes the whole truth,
// so concurrent syncs for the same customer are last-write-wins safe.
type SyncEngine struct {
	gateway StripeGateway
	store   *SnapshotStore
}

// NewSyncEngine creates a sync engine from an injected gateway and store.
func NewSyncEngine(gateway StripeGateway, store *SnapshotStore) *SyncEngine {
	return &SyncEngine{gateway: gateway, store: store}
}

// Sync fetches all subscriptions for the customer, normalizes and sorts
// them, and writes the resulting snapshot. The store is only touched after
// every Stripe lookup has succeeded; on error the cached snapshot is
// unchanged.
func (e *SyncEngine) Sync(ctx context.Context, customerID string) (*Snapshot, error) {
	subs, err := e.gateway.ListSubscriptions(ctx, customerID)
	if err != nil {
		return nil, &SyncError{CustomerID: customerID, Err: err}
	}

	now := time.Now().UTC()

	if len(subs) == 0 {
		snap := &Snapshot{
			StripeCustomerID:     customerID,
			Status:               StatusNone,
			Subscriptions:        []SubscriptionItem{},
			LastSyncedFromStripe: now,
		}
		if err := e.store.Put(ctx, snap); err != nil {
			return nil, &SyncError{CustomerID: customerID, Err: err}
		}
		return snap, nil
	}

	sorted := sortSubscriptionsByPriority(subs)

	// One product lookup per distinct product across all subscriptions.
	products := make(map[string]*stripe.Product)
	items := make([]SubscriptionItem, 0, len(sorted))
	for _, sub := range sorted {
		productID := subscriptionProductID(sub)
		product := products[productID]
		if product == nil && productID != "" {
			product, err = e.gateway.GetProduct(ctx, productID)
			if err != nil {
				return nil, &SyncError{CustomerID: customerID, Err: err}
			}
			products[productID] = product
		}
		items = append(items, normalizeSubscription(sub, productID, product))
	}

	primary := items[0]
	snap := &Snapshot{
		StripeCustomerID:     customerID,
		Status:               primary.Status,
		PlanName:             primary.PlanName,
		PlanID:               primary.PlanID,
		CurrentPeriodEnd:     primary.RenewalDate,
		CancelAtPeriodEnd:    primary.CancelAtPeriodEnd,
		Subscriptions:        items,
		LastSyncedFromStripe: now,
	}
	if err := e.store.Put(ctx, snap); err != nil {
		return nil, &SyncError{CustomerID: customerID, Err: err}
	}
	return snap, nil
}

// subscriptionProductID extracts the product behind the subscription's first
// line item. Webhook payloads may carry the product as a bare ID.
func subscriptionProductID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	price := sub.Items.Data[0].Price
	if price == nil || price.Product == nil {
		return ""
	}
	return price.Product.ID
}

func normalizeSubscription(sub *stripe.Subscription, productID string, product *stripe.Product) SubscriptionItem {
	item := SubscriptionItem{
		ID:                sub.ID,
		Status:            string(sub.Status),
		PlanID:            productID,
		RenewalDate:       time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339),
		RenewalPeriod:     "month",
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if product != nil {
		item.PlanName = product.Name
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		if price := sub.Items.Data[0].Price; price != nil && price.Recurring != nil && price.Recurring.Interval != "" {
			item.RenewalPeriod = string(price.Recurring.Interval)
		}
	}
	if sub.CancelAt > 0 {
		item.CancelAt = time.Unix(sub.CancelAt, 0).UTC().Format(time.RFC3339)
	}
	return item
}
