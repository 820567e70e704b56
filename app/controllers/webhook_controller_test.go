package controllers

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/subdeckhq/subdeck/internal/pkg/billing"
	"github.com/subdeckhq/subdeck/internal/pkg/constants"
)

const testWebhookSecret = "whsec_test_secret"

func setupWebhookApp(gw *stubGateway, store *billing.SnapshotStore, events *stubEventRepo, secret string) *fiber.App {
	app := newTestApp()
	engine := billing.NewSyncEngine(gw, store)
	controller := NewWebhookController(gw, engine, events, secret)
	app.Post(constants.StripeWebhookRoute, controller.HandleStripeWebhook)
	return app
}

// signedWebhookRequest builds a delivery whose Stripe-Signature header
// verifies against the given secret.
func signedWebhookRequest(payload []byte, secret string) *http.Request {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	req := httptest.NewRequest(http.MethodPost, constants.StripeWebhookRoute, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", header)
	return req
}

func subscriptionDeletedPayload(eventID, subscriptionID, customerID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"customer.subscription.deleted","data":{"object":{"id":%q,"object":"subscription","customer":%q,"status":"canceled"}}}`,
		eventID, subscriptionID, customerID))
}

func TestWebhookMissingSignature(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	app := setupWebhookApp(&stubGateway{}, store, events, testWebhookSecret)

	req := httptest.NewRequest(http.MethodPost, constants.StripeWebhookRoute,
		bytes.NewReader(subscriptionDeletedPayload("evt_1", "sub_1", "cus_3")))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Missing Stripe signature", body["message"])
	assert.Empty(t, events.byEventID)
}

func TestWebhookInvalidSignature(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	app := setupWebhookApp(&stubGateway{}, store, events, testWebhookSecret)

	// Signed with the wrong secret.
	req := signedWebhookRequest(subscriptionDeletedPayload("evt_1", "sub_1", "cus_3"), "whsec_other")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid signature", body["message"])
	assert.Empty(t, events.byEventID)
}

func TestWebhookPlaceholderSecretSkipsVerification(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	gw := &stubGateway{
		listSubscriptions: func(_ context.Context, _ string) ([]*stripe.Subscription, error) {
			t.Error("degraded mode must not process events")
			return nil, nil
		},
	}
	app := setupWebhookApp(gw, store, events, "whsec_placeholder")

	req := signedWebhookRequest(subscriptionDeletedPayload("evt_1", "sub_1", "cus_3"), "whsec_anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, false, body["verified"])
	// Nothing recorded, nothing synced.
	assert.Empty(t, events.byEventID)
}

func TestWebhookSubscriptionDeletedSyncsCustomer(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	gw := &stubGateway{
		listSubscriptions: func(_ context.Context, customerID string) ([]*stripe.Subscription, error) {
			assert.Equal(t, "cus_3", customerID)
			return nil, nil
		},
	}
	app := setupWebhookApp(gw, store, events, testWebhookSecret)

	req := signedWebhookRequest(subscriptionDeletedPayload("evt_1", "sub_1", "cus_3"), testWebhookSecret)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])

	// The customer's snapshot reflects the canceled state.
	snap, err := store.Get(context.Background(), "cus_3")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusNone, snap.Status)

	// Event recorded and marked processed without error.
	stored, ok := events.byEventID["evt_1"]
	require.True(t, ok)
	assert.Equal(t, "customer.subscription.deleted", stored.EventType)
	assert.True(t, stored.SignatureValid)
	processed, ok := events.processed[stored.ID]
	require.True(t, ok)
	assert.Empty(t, processed)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	syncCalls := 0
	gw := &stubGateway{
		listSubscriptions: func(_ context.Context, _ string) ([]*stripe.Subscription, error) {
			syncCalls++
			return nil, nil
		},
	}
	app := setupWebhookApp(gw, store, events, testWebhookSecret)

	payload := subscriptionDeletedPayload("evt_1", "sub_1", "cus_3")

	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Same event redelivered: acknowledged without reprocessing.
	resp, err = app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, 1, syncCalls)
}

func TestWebhookUnhandledEventType(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	gw := &stubGateway{
		listSubscriptions: func(_ context.Context, _ string) ([]*stripe.Subscription, error) {
			t.Error("unhandled event types must not sync")
			return nil, nil
		},
	}
	app := setupWebhookApp(gw, store, events, testWebhookSecret)

	payload := []byte(`{"id":"evt_charge","type":"charge.succeeded","data":{"object":{"id":"ch_1","object":"charge"}}}`)
	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])

	// Still recorded for the audit trail.
	stored, ok := events.byEventID["evt_charge"]
	require.True(t, ok)
	assert.Equal(t, "", events.processed[stored.ID])
}

func TestWebhookInvoicePaidResolvesCustomerViaSubscription(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	gw := &stubGateway{
		getSubscription: func(_ context.Context, subscriptionID string) (*stripe.Subscription, error) {
			assert.Equal(t, "sub_9", subscriptionID)
			return &stripe.Subscription{
				ID:       "sub_9",
				Customer: &stripe.Customer{ID: "cus_9"},
			}, nil
		},
		listSubscriptions: func(_ context.Context, customerID string) ([]*stripe.Subscription, error) {
			assert.Equal(t, "cus_9", customerID)
			return nil, nil
		},
	}
	app := setupWebhookApp(gw, store, events, testWebhookSecret)

	payload := []byte(`{"id":"evt_inv","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice","subscription":"sub_9"}}}`)
	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = store.Get(context.Background(), "cus_9")
	assert.NoError(t, err)
}

func TestWebhookOneOffInvoiceNeedsNoSync(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	app := setupWebhookApp(&stubGateway{}, store, events, testWebhookSecret)

	payload := []byte(`{"id":"evt_oneoff","type":"invoice.paid","data":{"object":{"id":"in_2","object":"invoice"}}}`)
	resp, err := app.Test(signedWebhookRequest(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
}

func TestWebhookSyncFailureIs500(t *testing.T) {
	store, _ := newTestSnapshotStore(t)
	events := newStubEventRepo()
	gw := &stubGateway{
		listSubscriptions: func(_ context.Context, _ string) ([]*stripe.Subscription, error) {
			return nil, errors.New("stripe unavailable")
		},
	}
	app := setupWebhookApp(gw, store, events, testWebhookSecret)

	req := signedWebhookRequest(subscriptionDeletedPayload("evt_fail", "sub_1", "cus_3"), testWebhookSecret)
	resp, err := app.Test(req)
	require.NoError(t, err)

	// Stripe retries on 5xx, so processing failures must not be swallowed.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	stored := events.byEventID["evt_fail"]
	require.NotNil(t, stored)
	assert.Contains(t, events.processed[stored.ID], "stripe unavailable")
}
