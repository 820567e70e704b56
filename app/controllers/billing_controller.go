package controllers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/subdeckhq/subdeck/internal/pkg/billing"
	"github.com/subdeckhq/subdeck/internal/pkg/usercontext"
)

// BillingController wraps the Stripe session-creation APIs: billing portal,
// checkout, and the public plan listing. No caching on any of these paths.
type BillingController struct {
	gateway  billing.StripeGateway
	resolver *billing.CustomerResolver
	validate *validator.Validate
}

func NewBillingController(gateway billing.StripeGateway, resolver *billing.CustomerResolver) *BillingController {
	return &BillingController{
		gateway:  gateway,
		resolver: resolver,
		validate: validator.New(),
	}
}

type createPortalRequest struct {
	ReturnURL string `json:"returnUrl" validate:"required,url"`
}

// HandleCreateBillingPortal creates a billing portal session for the
// authenticated user and returns its redirect URL verbatim.
func (ct *BillingController) HandleCreateBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAuthenticated {
		return unauthorizedJSON(c)
	}

	var req createPortalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c, "returnUrl is required")
	}
	if err := ct.validate.Struct(req); err != nil {
		return badRequestJSON(c, "returnUrl is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	customerID, err := ct.resolver.Resolve(ctx, userCtx.UserID)
	if err != nil {
		return internalErrorJSON(c, err)
	}

	session, err := ct.gateway.CreateBillingPortalSession(ctx, customerID, req.ReturnURL)
	if err != nil {
		return internalErrorJSON(c, &billing.UpstreamError{Op: "billing portal session create", Err: err})
	}

	return c.JSON(fiber.Map{
		"url":       session.URL,
		"sessionId": session.ID,
	})
}

type createCheckoutRequest struct {
	PriceID    string `json:"priceId" validate:"required"`
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}

// HandleCreateCheckoutSession starts a subscription checkout for the given
// price and returns the session redirect URL verbatim.
func (ct *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	var req createCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c, "Missing required fields: priceId, successUrl, cancelUrl")
	}
	if err := ct.validate.Struct(req); err != nil {
		return badRequestJSON(c, "Missing required fields: priceId, successUrl, cancelUrl")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	session, err := ct.gateway.CreateCheckoutSession(ctx, req.PriceID, req.SuccessURL, req.CancelURL)
	if err != nil {
		return internalErrorJSON(c, &billing.UpstreamError{Op: "checkout session create", Err: err})
	}

	return c.JSON(fiber.Map{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// HandleListPlans returns the active Stripe products with their default
// price expanded.
func (ct *BillingController) HandleListPlans(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	products, err := ct.gateway.ListActiveProducts(ctx)
	if err != nil {
		return internalErrorJSON(c, &billing.UpstreamError{Op: "product list", Err: err})
	}

	return c.JSON(fiber.Map{"products": products})
}
