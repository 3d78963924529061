// Package main provides the Ship-it API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/relengworks/shipit/pkg/actions"
	"github.com/relengworks/shipit/pkg/eventbus"
	"github.com/relengworks/shipit/pkg/flavors"
	"github.com/relengworks/shipit/pkg/persistence"
	"github.com/relengworks/shipit/pkg/queue"
	"github.com/relengworks/shipit/pkg/services"
	"github.com/relengworks/shipit/pkg/web"
)

type API struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	queue         queue.Queue
	resolver      actions.Resolver
	flavorsConfig *flavors.Config
	eventBus      eventbus.EventBus
	validate      *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	taskQueue queue.Queue,
	resolver actions.Resolver,
	flavorsConfig *flavors.Config,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:        logger,
		persistence:   persistence,
		queue:         taskQueue,
		resolver:      resolver,
		flavorsConfig: flavorsConfig,
		eventBus:      eventBus,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	releaseService := services.NewRelease(
		a.persistence,
		a.queue,
		a.resolver,
		flavors.NewPlanner(a.flavorsConfig),
		publisher,
		a.logger,
	)

	handlers := web.NewAPIHandlers(releaseService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Ship-it API")
	})

	r := app.Group("/releases")
	r.Get("/", handlers.GetReleases)
	r.Post("/", handlers.CreateRelease)
	r.Get("/:name", handlers.GetRelease)
	r.Delete("/:name", handlers.AbandonRelease)
	r.Get("/:name/phases/:phase", handlers.GetPhase)
	r.Put("/:name/phases/:phase", handlers.SchedulePhase)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
