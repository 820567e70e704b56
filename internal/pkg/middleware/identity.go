package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/subdeckhq/subdeck/internal/pkg/auth"
	"github.com/subdeckhq/subdeck/internal/pkg/constants"
	"github.com/subdeckhq/subdeck/internal/pkg/usercontext"
)

// IdentityMiddleware lifts the subject claim placed on the request by the
// upstream authorizer into the user context. Requests without a valid claim
// pass through anonymous; handlers decide whether that is a 401.
func IdentityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := c.Get(constants.HeaderAuthSubject)
		if userID, err := auth.ValidateSubject(subject); err == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{
				UserID:          userID,
				IsAuthenticated: true,
			})
		}
		return c.Next()
	}
}
