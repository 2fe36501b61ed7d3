// handlers/spider_routes.go
package handlers

import (
	"log"

	"spider-league/middleware"
	"spider-league/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSpiderRoutes(app *fiber.App, spiderService *services.SpiderService) {
	secured := app.Group("/spiders", middleware.UserContextMiddleware())

	// Upload a photo; classification happens asynchronously
	secured.Post("/", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
		}
		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("❌ [SPIDER] could not open upload: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read image"})
		}
		defer file.Close()

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		spider, err := spiderService.Upload(c.UserContext(), middleware.UserID(c), c.FormValue("nickname"), fileHeader.Filename, contentType, file)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(spider)
	})

	secured.Get("/", func(c *fiber.Ctx) error {
		spiders, err := spiderService.ListByOwner(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(spiders)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		spider, err := spiderService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(spider)
	})

	secured.Patch("/:id", func(c *fiber.Ctx) error {
		var req struct {
			Nickname string `json:"nickname"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
		}
		spider, err := spiderService.Rename(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Nickname)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(spider)
	})
}
