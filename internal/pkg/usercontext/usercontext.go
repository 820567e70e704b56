package usercontext

import "github.com/gofiber/fiber/v2"

const contextKey = "USER_CONTEXT"

// UserContext carries the authenticated principal for a request.
type UserContext struct {
	UserID          string `json:"user_id"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// SetUserContext stores the user context for downstream handlers.
func SetUserContext(c *fiber.Ctx, userCtx UserContext) {
	c.Locals(contextKey, userCtx)
}

// GetUserContext retrieves the user context from the fiber context.
// Returns an anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(contextKey); ctx != nil {
		if userCtx, ok := ctx.(UserContext); ok {
			return userCtx
		}
	}
	return UserContext{IsAuthenticated: false}
}
