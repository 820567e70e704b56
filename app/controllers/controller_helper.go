package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// Error envelope shared by every endpoint: {"error": ..., "message": ...}.

func errorJSON(c *fiber.Ctx, status int, label, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": label, "message": message})
}

func unauthorizedJSON(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized", "Authentication required")
}

func badRequestJSON(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusBadRequest, "Bad Request", message)
}

func internalErrorJSON(c *fiber.Ctx, err error) error {
	return errorJSON(c, fiber.StatusInternalServerError, "Internal server error", err.Error())
}
