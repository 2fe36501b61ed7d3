// handlers/battle_routes.go
package handlers

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"spider-league/middleware"
	"spider-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// SetupFunctionRoutes mounts the battle simulator function. It carries its own
// open CORS policy, so it must be registered before the app-wide CORS handler.
func SetupFunctionRoutes(app *fiber.App, battleService *services.BattleService, serviceToken string) {
	fn := app.Group("/functions",
		cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "POST,OPTIONS",
			AllowHeaders: "Authorization, X-Client-Info, Apikey, Content-Type",
		}),
		middleware.ServiceTokenMiddleware(serviceToken),
	)

	fn.Options("/battle-simulator", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	fn.Post("/battle-simulator", func(c *fiber.Ctx) error {
		var req struct {
			BattleID string `json:"battleId"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		req.BattleID = strings.TrimSpace(req.BattleID)
		if req.BattleID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "battleId is required"})
		}

		result, err := battleService.Run(c.UserContext(), req.BattleID)
		if err != nil {
			return fail(c, err)
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"battleId": result.BattleID,
			"winner":   result.WinnerUserID,
			"turns":    result.Turns,
			"finalState": fiber.Map{
				"p1_hp": result.P1HP,
				"p2_hp": result.P2HP,
			},
		})
	})
}

// runInBackground plays a freshly created battle detached from the request
func runInBackground(battleService *services.BattleService, battleID string) {
	go func() {
		if _, err := battleService.Run(context.Background(), battleID); err != nil {
			log.Printf("❌ [BATTLE] background run of %s failed: %v", battleID, err)
		}
	}()
}

func SetupBattleRoutes(app *fiber.App, battleService *services.BattleService, streamPoll time.Duration) {
	secured := app.Group("/battles", middleware.UserContextMiddleware())

	// Practice battle: the caller's spider against any classified spider.
	// Nothing changes hands; the battle runs in the background.
	secured.Post("/", func(c *fiber.Ctx) error {
		var req struct {
			SpiderID         string `json:"spider_id"`
			OpponentSpiderID string `json:"opponent_spider_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		if req.SpiderID == "" || req.OpponentSpiderID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "spider_id and opponent_spider_id are required"})
		}

		battle, err := battleService.CreateBattle(c.UserContext(), middleware.UserID(c), req.SpiderID, req.OpponentSpiderID, nil)
		if err != nil {
			return fail(c, err)
		}
		runInBackground(battleService, battle.ID)
		return c.Status(fiber.StatusAccepted).JSON(battle)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		battles, err := battleService.ListUserBattles(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(battles)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		battle, err := battleService.GetBattle(c.UserContext(), c.Params("id"), true)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(battle)
	})

	secured.Get("/:id/turns", func(c *fiber.Ctx) error {
		after, _ := strconv.Atoi(c.Query("after", "0"))
		if _, err := battleService.GetBattle(c.UserContext(), c.Params("id"), false); err != nil {
			return fail(c, err)
		}
		turns, err := battleService.ListTurns(c.UserContext(), c.Params("id"), after)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(turns)
	})

	secured.Get("/:id/stream", battleService.StreamBattleSSE(streamPoll))
}
