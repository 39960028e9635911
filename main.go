package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"collab/internal/audit"
	"collab/internal/config"
	"collab/internal/database"
	"collab/internal/handlers"
	"collab/internal/logger"
	"collab/internal/metrics"
	"collab/internal/middleware"
	"collab/internal/recommendation"
	"collab/internal/repositories"
	"collab/internal/services"
	"collab/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// --- Storage ---
	repos, tx, err := openStore(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to initialise storage")
	}

	// --- RabbitMQ (optional) ---
	var publisher audit.Publisher
	mqStatus := "disabled"
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialise RabbitMQ client")
		}
		defer mqClient.Close()
		publisher = mqClient
		mqStatus = "connected"

		if err := mqClient.Consume(auditLogHandler(log), func(tag uint64, err error) {
			log.Warn().Err(err).Uint64("delivery_tag", tag).Msg("audit consumer error")
		}); err != nil {
			log.Error().Err(err).Msg("failed to start audit consumer")
		}
	}

	metrics.Register()

	app := newApp(appDeps{
		Repos:    repos,
		Tx:       tx,
		Config:   cfg,
		Log:      log,
		Recorder: audit.NewRecorder(log, publisher),
		MQStatus: mqStatus,
	})

	// --- Start HTTP Server ---
	go func() {
		log.Info().Str("addr", cfg.App.Port).Msg("starting server")
		if err := app.Listen(cfg.App.Port); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during Fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

// openStore returns repositories and a transaction manager for the configured driver.
func openStore(cfg config.DatabaseConfig, log zerolog.Logger) (repositories.Repositories, repositories.TxManager, error) {
	if cfg.Driver == "memory" {
		store := repositories.NewMemoryStore()
		return store.Repositories(), store, nil
	}

	db, err := database.Open(cfg.Driver, cfg.DSN, log)
	if err != nil {
		return repositories.Repositories{}, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return repositories.Repositories{}, nil, err
	}
	return repositories.NewGORMRepositories(db), repositories.NewGORMTxManager(db), nil
}

// auditLogHandler logs each audit event delivered from the broker.
func auditLogHandler(log zerolog.Logger) func(amqp.Delivery) error {
	log = log.With().Str("component", "audit_consumer").Logger()
	return func(msg amqp.Delivery) error {
		ev, err := audit.Decode(msg.Body)
		if err != nil {
			return err
		}
		log.Info().
			Str("event_id", ev.ID).
			Str("routing_key", msg.RoutingKey).
			Uint("actor_id", ev.ActorID).
			Uint("resource_id", ev.ResourceID).
			Msg("audit event received")
		return nil
	}
}

type appDeps struct {
	Repos    repositories.Repositories
	Tx       repositories.TxManager
	Config   *config.Config
	Log      zerolog.Logger
	Recorder *audit.Recorder
	MQStatus string
}

// newApp wires services and handlers into a Fiber app.
func newApp(d appDeps) *fiber.App {
	authService := services.NewAuthService(d.Repos.Users, d.Config.JWT.Secret, d.Config.JWT.TokenTTL, d.Log)
	projectService := services.NewProjectService(d.Repos.Projects)
	matchService := services.NewMatchService(d.Repos.Matches, d.Repos.Projects, d.Tx, d.Log)
	engine := recommendation.NewEngine(d.Repos.Users, d.Repos.Projects, d.Repos.Matches, d.Log)

	authHandler := handlers.NewAuthHandler(authService, d.Log)
	projectHandler := handlers.NewProjectHandler(projectService, matchService, engine, d.Log)
	matchHandler := handlers.NewMatchHandler(matchService, d.Recorder, d.Log)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"message": err.Error(),
				"code":    "http_error",
			})
		},
	})

	// --- Middleware ---
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": d.Config.Database.Driver,
			"rabbitmq": d.MQStatus,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	projectHandler.RegisterRoutes(protected)
	matchHandler.RegisterRoutes(protected)

	return app
}
