// handlers/challenge_routes.go
package handlers

import (
	"spider-league/middleware"
	"spider-league/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService, battleService *services.BattleService) {
	secured := app.Group("/challenges", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			SpiderID         string `json:"spider_id"`
			OpponentSpiderID string `json:"opponent_spider_id"`
			Message          string `json:"message"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		if req.SpiderID == "" || req.OpponentSpiderID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "spider_id and opponent_spider_id are required"})
		}

		ch, err := challengeService.Create(c.UserContext(), middleware.UserID(c), req.SpiderID, req.OpponentSpiderID, req.Message)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		list, err := challengeService.ListForUser(c.UserContext(), middleware.UserID(c), c.Query("status"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		ch, err := challengeService.Get(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(ch)
	})

	// Accepting starts the battle right away; the loser's spider changes hands.
	secured.Post("/:id/accept", func(c *fiber.Ctx) error {
		ch, battle, err := challengeService.Accept(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		runInBackground(battleService, battle.ID)
		return c.JSON(fiber.Map{
			"challenge": ch,
			"battle":    battle,
		})
	})

	secured.Post("/:id/decline", func(c *fiber.Ctx) error {
		ch, err := challengeService.Decline(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(ch)
	})
}
