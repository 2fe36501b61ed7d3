// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"spider-league/middleware"
	"spider-league/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, badgeService *services.BadgeService) {
	// 🔓 Public
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		rows, err := progressionService.Leaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(rows))
		for i, p := range rows {
			response = append(response, fiber.Map{
				"position":       i + 1,
				"user_id":        p.ExternalUserID,
				"level":          p.Level,
				"rank":           p.Rank,
				"rank_name":      services.RankName(p.Rank),
				"battles_won":    p.BattlesWon,
				"total_battles":  p.TotalBattles,
				"spiders_caught": p.SpidersCaptured,
				"xp":             p.TotalXP,
			})
		}
		return c.JSON(response)
	})

	// 🔐 Secured routes: require user context
	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	securedGroup.Get("/progress", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		prog, err := progressionService.GetProgress(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress record",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":               prog.ID,
			"xp":               prog.TotalXP,
			"level":            prog.Level,
			"rank":             prog.Rank,
			"rank_name":        services.RankName(prog.Rank),
			"total_battles":    prog.TotalBattles,
			"battles_won":      prog.BattlesWon,
			"spiders_captured": prog.SpidersCaptured,
			"spiders_lost":     prog.SpidersLost,
			"win_streak":       prog.WinStreak,
			"best_win_streak":  prog.BestWinStreak,
			"last_level_up_at": prog.LastLevelUpAt,
			"last_rank_up_at":  prog.LastRankUpAt,
			"last_battle_at":   prog.LastBattleAt,
		})
	})

	securedGroup.Get("/progress/badges", func(c *fiber.Ctx) error {
		userBadges, err := badgeService.ListUserBadges(middleware.UserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(userBadges))
		for _, ub := range userBadges {
			response = append(response, fiber.Map{
				"id":            ub.ID,
				"badge_type_id": ub.BadgeType.ID,
				"code":          ub.BadgeType.Code,
				"name":          ub.BadgeType.Name,
				"description":   ub.BadgeType.Description,
				"icon_url":      ub.BadgeType.IconURL,
				"rarity":        ub.BadgeType.Rarity,
				"awarded_at":    ub.AwardedAt,
				"battle_id":     ub.BattleID,
			})
		}
		return c.JSON(response)
	})
}

// SetupHealthRoutes exposes a liveness probe
func SetupHealthRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
