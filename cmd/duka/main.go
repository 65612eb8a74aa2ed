package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"duka/internal/config"
	"duka/internal/http/handlers"
	applog "duka/internal/log"
	"duka/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			// Never leak internals to clients
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"kind":  "internal",
				"error": "something went wrong",
			})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	deps := handlers.NewDeps(db, cfg)

	api := app.Group("/api/v1")

	// Auth (login throttled)
	auth := api.Group("/auth")
	auth.Post("/register", deps.AuthHandler.Register)
	auth.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	}), deps.AuthHandler.Login)
	auth.Post("/logout", deps.AuthHandler.Logout)
	auth.Get("/me", handlers.RequireCustomer(deps.Auth), deps.AuthHandler.Me)

	// Categories: browse is public, mutation is admin-only
	api.Get("/categories", deps.CategoryHandler.List)
	api.Get("/categories/slug/:slug", deps.CategoryHandler.BySlug)
	api.Get("/categories/:id", deps.CategoryHandler.Get)
	api.Get("/categories/:id/descendants", deps.CategoryHandler.Descendants)
	api.Get("/categories/:id/price-stats", deps.CategoryHandler.PriceStats)
	api.Post("/categories", handlers.RequireAdmin(deps.Auth), deps.CategoryHandler.Create)
	api.Patch("/categories/:id", handlers.RequireAdmin(deps.Auth), deps.CategoryHandler.Update)
	api.Delete("/categories/:id", handlers.RequireAdmin(deps.Auth), deps.CategoryHandler.Delete)

	// Products
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/search", limiter.New(limiter.Config{Max: 20, Expiration: time.Minute}), deps.ProductHandler.Search)
	api.Get("/products/:id", deps.ProductHandler.Get)
	api.Get("/products/:id/availability", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.ProductHandler.Availability)
	api.Post("/products", handlers.RequireAdmin(deps.Auth), deps.ProductHandler.Create)
	api.Patch("/products/:id", handlers.RequireAdmin(deps.Auth), deps.ProductHandler.Update)
	api.Delete("/products/:id", handlers.RequireAdmin(deps.Auth), deps.ProductHandler.Delete)

	// Orders
	api.Post("/orders", handlers.RequireCustomer(deps.Auth), deps.OrderHandler.Create)
	api.Get("/orders", handlers.RequireCustomer(deps.Auth), deps.OrderHandler.History)
	api.Get("/orders/:id", handlers.RequireCustomer(deps.Auth), deps.OrderHandler.Get)
	api.Post("/orders/:id/cancel", handlers.RequireCustomer(deps.Auth), deps.OrderHandler.Cancel)
	api.Post("/orders/:id/status", handlers.RequireAdmin(deps.Auth), deps.OrderHandler.UpdateStatus)
	api.Get("/admin/orders", handlers.RequireAdmin(deps.Auth), deps.OrderHandler.ListLatest)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
