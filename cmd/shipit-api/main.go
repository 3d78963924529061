package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/relengworks/shipit/pkg/cmd"
	"github.com/relengworks/shipit/pkg/flavors"
	"github.com/relengworks/shipit/pkg/log"
	"github.com/relengworks/shipit/pkg/otelhelper"
)

const defaultPort = 9010

func main() {
	command := &cli.Command{
		Name:                  "shipit-api",
		Usage:                 "Create, sign off and abandon product releases",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "queue-root-url",
				Usage:    "Root URL of the task queue backend",
				Required: true,
				Sources:  cli.EnvVars("QUEUE_ROOT_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-client-id",
				Usage:   "Client ID used to authenticate against the task queue",
				Sources: cli.EnvVars("QUEUE_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "queue-access-token",
				Usage:   "Access token used to authenticate against the task queue",
				Sources: cli.EnvVars("QUEUE_ACCESS_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "flavors-config",
				Usage:   "Path to the YAML file describing phase plans per product and branch",
				Value:   "./flavors.yml",
				Sources: cli.EnvVars("FLAVORS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for caching actions manifests (optional)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Ship-it API")

			if command.Bool("tracing") {
				tracerProvider, err := otelhelper.NewTracerProvider(ctx, "shipit-api")
				if err != nil {
					return err
				}

				defer func() {
					if err := tracerProvider.Shutdown(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			flavorsConfig, err := flavors.Load(command.String("flavors-config"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()
			}

			resolver, err := cmd.NewActionsResolver(logger, command.String("queue-root-url"), command.String("redis-url"))
			if err != nil {
				return err
			}

			taskQueue := cmd.NewQueue(
				logger,
				command.String("queue-root-url"),
				command.String("queue-client-id"),
				command.String("queue-access-token"),
			)

			api := NewAPI(logger, persistence, taskQueue, resolver, flavorsConfig, eventBus)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
