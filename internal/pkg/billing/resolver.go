package billing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/subdeckhq/subdeck/app/repository"
	"github.com/subdeckhq/subdeck/internal/pkg/env"
)

// ResolutionStrategy maps a user ID to a Stripe customer ID. A false second
// return means the strategy has no answer and the next one is tried.
type ResolutionStrategy func(ctx context.Context, userID string) (string, bool)

// CustomerResolver resolves users to Stripe customers by trying an ordered
// list of strategies: the persisted mapping first, then static environment
// fallbacks.
type CustomerResolver struct {
	strategies []ResolutionStrategy
}

// NewCustomerResolver builds the default strategy chain on top of the given
// mapping repository.
func NewCustomerResolver(repo repository.CustomerMappingRepository) *CustomerResolver {
	return &CustomerResolver{
		strategies: []ResolutionStrategy{
			mappingStrategy(repo),
			envOverrideStrategy,
			envDefaultStrategy,
		},
	}
}

// NewCustomerResolverWithStrategies builds a resolver from an explicit chain.
func NewCustomerResolverWithStrategies(strategies ...ResolutionStrategy) *CustomerResolver {
	return &CustomerResolver{strategies: strategies}
}

// Resolve returns the first customer ID any strategy produces, or
// ErrMappingNotFound when none do.
func (r *CustomerResolver) Resolve(ctx context.Context, userID string) (string, error) {
	for _, strategy := range r.strategies {
		if customerID, ok := strategy(ctx, userID); ok {
			return customerID, nil
		}
	}
	return "", fmt.Errorf("%w for user %s", ErrMappingNotFound, userID)
}

func mappingStrategy(repo repository.CustomerMappingRepository) ResolutionStrategy {
	return func(_ context.Context, userID string) (string, bool) {
		mapping, err := repo.GetByUserID(userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				// A transiently unavailable store falls through to the static
				// fallbacks instead of failing the request.
				log.Printf("customer mapping lookup failed for %s: %v", userID, err)
			}
			return "", false
		}
		return mapping.StripeCustomerID, true
	}
}

// envOverrideStrategy checks USER_STRIPE_CUSTOMER_<USER_ID> with hyphens
// mapped to underscores, e.g. USER_STRIPE_CUSTOMER_1A2B_3C4D_....
func envOverrideStrategy(_ context.Context, userID string) (string, bool) {
	key := "USER_STRIPE_CUSTOMER_" + strings.ToUpper(strings.ReplaceAll(userID, "-", "_"))
	if customerID := env.GetEnv(key, ""); customerID != "" {
		return customerID, true
	}
	return "", false
}

func envDefaultStrategy(_ context.Context, _ string) (string, bool) {
	if customerID := env.GetEnv("USER_STRIPE_CUSTOMER_DEFAULT", ""); customerID != "" {
		return customerID, true
	}
	return "", false
}
