package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"

	"github.com/subdeckhq/subdeck/app/models"
	"github.com/subdeckhq/subdeck/internal/pkg/billing"
)

// stubGateway implements billing.StripeGateway with per-test function
// fields. Unset calls fail the test via the recorded error.
type stubGateway struct {
	listSubscriptions   func(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	getSubscription     func(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	getProduct          func(ctx context.Context, productID string) (*stripe.Product, error)
	listActiveProducts  func(ctx context.Context) ([]*stripe.Product, error)
	createCustomer      func(ctx context.Context, userID, email string) (*stripe.Customer, error)
	createPortalSession func(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	createCheckout      func(ctx context.Context, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error)
}

func (s *stubGateway) ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	if s.listSubscriptions == nil {
		return nil, nil
	}
	return s.listSubscriptions(ctx, customerID)
}

func (s *stubGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	return s.getSubscription(ctx, subscriptionID)
}

func (s *stubGateway) GetProduct(ctx context.Context, productID string) (*stripe.Product, error) {
	if s.getProduct == nil {
		return &stripe.Product{ID: productID}, nil
	}
	return s.getProduct(ctx, productID)
}

func (s *stubGateway) ListActiveProducts(ctx context.Context) ([]*stripe.Product, error) {
	return s.listActiveProducts(ctx)
}

func (s *stubGateway) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	return s.createCustomer(ctx, userID, email)
}

func (s *stubGateway) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return s.createPortalSession(ctx, customerID, returnURL)
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	return s.createCheckout(ctx, priceID, successURL, cancelURL)
}

// stubMappingRepo backs the resolver with an in-memory user → customer map.
type stubMappingRepo struct {
	mappings map[string]*models.CustomerMapping
}

func (s *stubMappingRepo) GetByUserID(userID string) (*models.CustomerMapping, error) {
	if m, ok := s.mappings[userID]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMappingRepo) CreateIfNotExists(mapping *models.CustomerMapping) (bool, *models.CustomerMapping, error) {
	if existing, ok := s.mappings[mapping.UserID]; ok {
		return false, existing, nil
	}
	if s.mappings == nil {
		s.mappings = map[string]*models.CustomerMapping{}
	}
	s.mappings[mapping.UserID] = mapping
	return true, mapping, nil
}

// stubEventRepo records webhook events in memory keyed by provider event ID.
type stubEventRepo struct {
	nextID    uint
	byEventID map[string]*models.WebhookEvent
	processed map[uint]string
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{
		byEventID: map[string]*models.WebhookEvent{},
		processed: map[uint]string{},
	}
}

func (s *stubEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if existing, ok := s.byEventID[event.ProviderEventID]; ok {
		return false, existing, nil
	}
	s.nextID++
	event.ID = s.nextID
	s.byEventID[event.ProviderEventID] = event
	return true, event, nil
}

func (s *stubEventRepo) MarkProcessed(id uint, processingError string) error {
	s.processed[id] = processingError
	return nil
}

func newTestSnapshotStore(t *testing.T) (*billing.SnapshotStore, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return billing.NewSnapshotStore(rdb), rdb
}

func staticResolver(customerID string) *billing.CustomerResolver {
	return billing.NewCustomerResolverWithStrategies(
		func(_ context.Context, _ string) (string, bool) {
			return customerID, true
		},
	)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}
