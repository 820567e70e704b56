package constants

// API route constants
const (
	APIv1Route                    = "/api/v1"
	SubscriptionStatusRoute       = "/subscription/status"
	SubscriptionEntitlementsRoute = "/subscription/entitlements"
	BillingPortalRoute            = "/billing/portal"
	BillingCheckoutRoute          = "/billing/checkout"
	BillingPlansRoute             = "/billing/plans"
	StripeWebhookRoute            = "/webhooks/stripe"
	ProvisionRoute                = "/internal/provision"
)

// HeaderAuthSubject carries the subject claim set by the upstream
// authorizer.
const HeaderAuthSubject = "X-Auth-Subject"
