// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"spider-league/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrBattleNotFound),
		errors.Is(err, services.ErrSpiderNotFound),
		errors.Is(err, services.ErrChallengeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrNotSpiderOwner),
		errors.Is(err, services.ErrNotChallengeOpponent):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrBattleAlreadyClaimed),
		errors.Is(err, services.ErrOwnershipConflict),
		errors.Is(err, services.ErrChallengeNotPending),
		errors.Is(err, services.ErrChallengeExpired):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrSpiderNotReady),
		errors.Is(err, services.ErrSameSpider),
		errors.Is(err, services.ErrSelfChallenge),
		errors.Is(err, services.ErrBadNickname):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// fail writes {"error": ...}; unexpected errors are logged and not echoed
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
