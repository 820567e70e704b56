package controllers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/subdeckhq/subdeck/internal/pkg/auth"
	"github.com/subdeckhq/subdeck/internal/pkg/billing"
)

// ProvisionController handles the account-confirmation hook: it creates the
// Stripe customer for a new user and persists the mapping. Invoked by the
// identity provider's confirmation flow, not by end users.
type ProvisionController struct {
	provisioner *billing.Provisioner
	validate    *validator.Validate
}

func NewProvisionController(provisioner *billing.Provisioner) *ProvisionController {
	return &ProvisionController{provisioner: provisioner, validate: validator.New()}
}

type provisionRequest struct {
	UserID string `json:"userId" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// HandleProvisionCustomer is idempotent per user: repeat calls return the
// existing mapping without creating another Stripe customer.
func (ct *ProvisionController) HandleProvisionCustomer(c *fiber.Ctx) error {
	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequestJSON(c, "userId is required")
	}
	if err := ct.validate.Struct(req); err != nil {
		return badRequestJSON(c, "userId is required")
	}
	if _, err := auth.ValidateSubject(req.UserID); err != nil {
		return badRequestJSON(c, "userId must be a UUID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	mapping, err := ct.provisioner.Provision(ctx, req.UserID, req.Email)
	if err != nil {
		return internalErrorJSON(c, err)
	}
	return c.JSON(mapping)
}
