package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/subdeckhq/subdeck/internal/pkg/billing"
	"github.com/subdeckhq/subdeck/internal/pkg/entitlements"
	"github.com/subdeckhq/subdeck/internal/pkg/usercontext"
)

const requestTimeout = 15 * time.Second

// SubscriptionController serves the cached subscription status for the
// authenticated user, resyncing from Stripe when the cache is missing or
// stale.
type SubscriptionController struct {
	resolver *billing.CustomerResolver
	store    *billing.SnapshotStore
	sync     *billing.SyncEngine
}

func NewSubscriptionController(resolver *billing.CustomerResolver, store *billing.SnapshotStore, sync *billing.SyncEngine) *SubscriptionController {
	return &SubscriptionController{resolver: resolver, store: store, sync: sync}
}

// HandleSubscriptionStatus returns the user's subscription snapshot.
// Fresh cache is served directly with fromCache=true; otherwise a full sync
// runs first. A failed sync is a 500, never a stale fallback.
func (ct *SubscriptionController) HandleSubscriptionStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return unauthorizedJSON(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	snap, fromCache, err := ct.currentSnapshot(ctx, userCtx.UserID)
	if err != nil {
		return internalErrorJSON(c, err)
	}
	return c.JSON(statusResponse(snap, fromCache))
}

// HandleSubscriptionEntitlements maps the user's current snapshot to their
// entitlement tier and feature gates. Shares the status endpoint's
// cache-then-sync path.
func (ct *SubscriptionController) HandleSubscriptionEntitlements(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return unauthorizedJSON(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	snap, _, err := ct.currentSnapshot(ctx, userCtx.UserID)
	if err != nil {
		return internalErrorJSON(c, err)
	}

	tier := entitlements.TierFor(snap)
	return c.JSON(fiber.Map{
		"tier":     tier,
		"status":   snap.Status,
		"features": entitlements.FeaturesFor(tier),
	})
}

// currentSnapshot serves the cached snapshot when fresh, otherwise resyncs.
// The bool reports whether the cache was served directly.
func (ct *SubscriptionController) currentSnapshot(ctx context.Context, userID string) (*billing.Snapshot, bool, error) {
	customerID, err := ct.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	snap, err := ct.store.Get(ctx, customerID)
	if err == nil && billing.IsFresh(snap, time.Now()) {
		return snap, true, nil
	}
	if err != nil && !errors.Is(err, billing.ErrSnapshotNotFound) {
		return nil, false, err
	}

	snap, err = ct.sync.Sync(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	return snap, false, nil
}

func statusResponse(snap *billing.Snapshot, fromCache bool) fiber.Map {
	resp := fiber.Map{
		"status":            snap.Status,
		"cancelAtPeriodEnd": snap.CancelAtPeriodEnd,
		"subscriptions":     snap.Subscriptions,
		"fromCache":         fromCache,
	}
	if snap.PlanName != "" {
		resp["planName"] = snap.PlanName
	}
	if snap.PlanID != "" {
		resp["planId"] = snap.PlanID
	}
	if snap.CurrentPeriodEnd != "" {
		resp["renewalDate"] = snap.CurrentPeriodEnd
	}
	if len(snap.Subscriptions) > 0 {
		resp["renewalPeriod"] = snap.Subscriptions[0].RenewalPeriod
	}
	return resp
}
