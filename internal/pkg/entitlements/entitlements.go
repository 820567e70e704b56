package entitlements

import (
	"strings"

	"github.com/subdeckhq/subdeck/internal/pkg/billing"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
)

// Features are the capability gates a tier unlocks. MaxProjects of -1 means
// unlimited.
type Features struct {
	MaxProjects     int  `json:"maxProjects"`
	APIAccess       bool `json:"apiAccess"`
	PrioritySupport bool `json:"prioritySupport"`
}

// paidStatuses are the subscription states that keep paid entitlements.
// past_due keeps access during the dunning grace period.
var paidStatuses = map[string]bool{
	billing.StatusActive:   true,
	billing.StatusTrialing: true,
	billing.StatusPastDue:  true,
}

// TierFor derives the entitlement tier from a subscription snapshot. A
// canceled or absent subscription is free regardless of plan.
func TierFor(snap *billing.Snapshot) Tier {
	if snap == nil || !paidStatuses[snap.Status] {
		return TierFree
	}
	plan := strings.ToLower(snap.PlanName)
	if strings.Contains(plan, "pro") || strings.Contains(plan, "premium") {
		return TierPro
	}
	return TierStarter
}

// FeaturesFor returns the capability set for a tier.
func FeaturesFor(tier Tier) Features {
	switch tier {
	case TierPro:
		return Features{MaxProjects: -1, APIAccess: true, PrioritySupport: true}
	case TierStarter:
		return Features{MaxProjects: 10, APIAccess: true, PrioritySupport: false}
	default:
		return Features{MaxProjects: 3, APIAccess: false, PrioritySupport: false}
	}
}
