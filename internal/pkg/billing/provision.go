package billing

import (
	"context"
	"log"

	"github.com/subdeckhq/subdeck/app/models"
	"github.com/subdeckhq/subdeck/app/repository"
)

// Provisioner creates the Stripe customer for a freshly confirmed account
// and persists the user → customer mapping. Safe to invoke repeatedly for
// the same user.
type Provisioner struct {
	gateway StripeGateway
	repo    repository.CustomerMappingRepository
}

// NewProvisioner creates a provisioner from an injected gateway and
// repository.
func NewProvisioner(gateway StripeGateway, repo repository.CustomerMappingRepository) *Provisioner {
	return &Provisioner{gateway: gateway, repo: repo}
}

// Provision returns the user's mapping, creating the Stripe customer and the
// mapping row when none exists yet. The customer create carries a stable
// idempotency key per user, so retrying after a failed create is safe.
// Known gap: if the create succeeds and the mapping write fails, a retry
// outside Stripe's idempotency window can mint a duplicate customer.
func (p *Provisioner) Provision(ctx context.Context, userID, email string) (*models.CustomerMapping, error) {
	if existing, err := p.repo.GetByUserID(userID); err == nil {
		return existing, nil
	}

	customer, err := p.gateway.CreateCustomer(ctx, userID, email)
	if err != nil {
		return nil, &UpstreamError{Op: "customer create", Err: err}
	}
	log.Printf("stripe customer created: %s for user %s", customer.ID, userID)

	created, stored, err := p.repo.CreateIfNotExists(&models.CustomerMapping{
		UserID:           userID,
		StripeCustomerID: customer.ID,
		Email:            email,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a provisioning race; the first writer's customer ID wins.
		log.Printf("mapping already present for user %s, keeping %s", userID, stored.StripeCustomerID)
	}
	return stored, nil
}
