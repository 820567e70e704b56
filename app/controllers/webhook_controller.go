package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/subdeckhq/subdeck/app/models"
	"github.com/subdeckhq/subdeck/app/repository"
	"github.com/subdeckhq/subdeck/internal/pkg/billing"
)

// WebhookController receives Stripe webhook deliveries and refreshes the
// subscription cache for the affected customer. Deliveries are at-least-once;
// the event log plus the sync engine's full-overwrite semantics make
// redelivery safe.
type WebhookController struct {
	gateway billing.StripeGateway
	sync    *billing.SyncEngine
	events  repository.WebhookEventRepository
	secret  string
}

func NewWebhookController(gateway billing.StripeGateway, sync *billing.SyncEngine, events repository.WebhookEventRepository, secret string) *WebhookController {
	return &WebhookController{gateway: gateway, sync: sync, events: events, secret: secret}
}

// HandleStripeWebhook verifies the delivery signature, records the event,
// and syncs the customer referenced by subscription and invoice events.
// Signature problems are 400s so Stripe's retry classification stays
// correct; processing failures are 500s so Stripe redelivers.
func (ct *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	if signature == "" {
		log.Print("webhook rejected: no Stripe signature header")
		return badRequestJSON(c, "Missing Stripe signature")
	}

	if !billing.WebhookSecretConfigured(ct.secret) {
		// Bootstrap mode before the real signing secret is deployed. The
		// event is acknowledged but NOT trusted and NOT processed.
		var peek struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(rawBody, &peek)
		log.Printf("webhook secret unconfigured, skipping verification (event type %q)", peek.Type)
		return c.JSON(fiber.Map{"received": true, "verified": false})
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, signature, ct.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("webhook signature verification failed: %v", err)
		return badRequestJSON(c, "Invalid signature")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	eventID := event.ID
	if eventID == "" {
		eventID = billing.FallbackEventID(rawBody)
	}
	created, stored, err := ct.events.CreateIfNotExists(&models.WebhookEvent{
		ProviderEventID: eventID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return internalErrorJSON(c, err)
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	customerID, err := ct.eventCustomerID(ctx, event)
	if err != nil {
		_ = ct.events.MarkProcessed(stored.ID, err.Error())
		return internalErrorJSON(c, err)
	}
	if customerID == "" {
		// Unhandled event type or nothing to sync; acknowledge receipt so
		// Stripe stops retrying.
		_ = ct.events.MarkProcessed(stored.ID, "")
		return c.JSON(fiber.Map{"received": true})
	}

	if _, err := ct.sync.Sync(ctx, customerID); err != nil {
		_ = ct.events.MarkProcessed(stored.ID, err.Error())
		return internalErrorJSON(c, err)
	}
	_ = ct.events.MarkProcessed(stored.ID, "")
	return c.JSON(fiber.Map{"received": true})
}

// eventCustomerID extracts the Stripe customer a verified event concerns.
// An empty ID with nil error means the event needs no sync.
func (ct *WebhookController) eventCustomerID(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", fmt.Errorf("decode subscription event %s: %w", event.ID, err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return "", errors.New("subscription event carries no customer")
		}
		return sub.Customer.ID, nil

	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", fmt.Errorf("decode invoice event %s: %w", event.ID, err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			// One-off invoice, no subscription state to refresh.
			return "", nil
		}
		sub, err := ct.gateway.GetSubscription(ctx, inv.Subscription.ID)
		if err != nil {
			return "", &billing.UpstreamError{Op: "subscription retrieve", Err: err}
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return "", errors.New("subscription carries no customer")
		}
		return sub.Customer.ID, nil

	default:
		return "", nil
	}
}
