// Package app wires configuration, storage, services and HTTP routes into a
// runnable Fiber application.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pastelfeed/internal/config"
	"pastelfeed/internal/database"
	"pastelfeed/internal/filestore"
	"pastelfeed/internal/handlers"
	"pastelfeed/internal/metrics"
	"pastelfeed/internal/middleware"
	"pastelfeed/internal/repositories"
	"pastelfeed/internal/services"
	"pastelfeed/internal/sessions"
	"pastelfeed/pkg/rabbitmq"
)

const (
	sessionGCInterval = 10 * time.Minute
	redisSessionKey   = "pastelfeed:session:"
)

// App owns every long-lived resource of the server.
type App struct {
	Fiber *fiber.App

	cfg            *config.Config
	log            *logrus.Logger
	db             *gorm.DB
	redis          *redis.Client
	mq             *rabbitmq.Client
	sessionStorage fiber.Storage
	metrics        *metrics.Metrics
}

// New connects to the database, applies migrations and registers all routes.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log, metrics: metrics.New()}
	if err := a.init(ctx); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	db, err := database.Connect(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN, a.log)
	if err != nil {
		return err
	}
	a.db = db

	if err := a.openSessionStorage(ctx); err != nil {
		return err
	}
	a.connectBroker()

	if err := os.MkdirAll(a.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	a.Fiber = fiber.New(fiber.Config{
		AppName:               "PastelFeed",
		ErrorHandler:          handlers.ErrorHandler(a.log, a.cfg.IsProduction()),
		BodyLimit:             a.cfg.BodyLimit,
		DisableStartupMessage: true,
	})
	a.routes()
	return nil
}

func (a *App) openSessionStorage(ctx context.Context) error {
	switch a.cfg.SessionStore {
	case "sql":
		a.sessionStorage = repositories.NewGORMSessionStorage(a.db, sessionGCInterval)
	case "redis":
		client, err := database.OpenRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		if err != nil {
			return err
		}
		a.redis = client
		a.sessionStorage = repositories.NewRedisSessionStorage(client, redisSessionKey)
	case "memory":
		a.log.Warn("Sessions are kept in memory and will not survive a restart")
	default:
		return fmt.Errorf("unsupported session store %q", a.cfg.SessionStore)
	}
	a.log.WithField("store", a.cfg.SessionStore).Info("Session storage ready")
	return nil
}

// connectBroker enables wall events when RABBITMQ_URL is set. The server
// keeps running without them if the broker is unreachable.
func (a *App) connectBroker() {
	if a.cfg.RabbitMQURL == "" {
		a.log.Info("RabbitMQ disabled, wall events will not be published")
		return
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL, Queue: a.cfg.RabbitMQQueue}, a.log)
	if err != nil {
		a.log.WithError(err).Warn("RabbitMQ unavailable, continuing without wall events")
		return
	}
	a.mq = client
	if err := client.ConsumeEvents(rabbitmq.LogEvent(a.log)); err != nil {
		a.log.WithError(err).Warn("Failed to start RabbitMQ consumer")
	}
}

func (a *App) routes() {
	cfg, log := a.cfg, a.log

	var events services.EventPublisher
	if a.mq != nil {
		events = a.mq
	}
	files := filestore.New(cfg.UploadDir, cfg.UploadPublicPath)

	userRepo := repositories.NewGORMUserRepository(a.db)
	authService := services.NewAuthService(userRepo, events, a.metrics, log)
	profileService := services.NewProfileService(userRepo, files, log)
	messageService := services.NewMessageService(repositories.NewGORMMessageRepository(a.db), events, a.metrics, log)
	itemService := services.NewSavedItemService(repositories.NewGORMSavedItemRepository(a.db))
	letterService := services.NewLetterService(repositories.NewGORMLetterRepository(a.db), log)
	uploadService := services.NewUploadService(repositories.NewGORMUploadedImageRepository(a.db), files, events, a.metrics, log)

	sm := sessions.NewManager(sessions.Options{
		CookieName: cfg.SessionCookieName,
		Expiration: cfg.SessionExpiration,
		Secure:     cfg.IsProduction(),
	}, a.sessionStorage)
	auth := middleware.AuthRequired(sm, authService, log)

	app := a.Fiber
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.Metrics(a.metrics))
	app.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	app.Get("/health", a.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	api := app.Group("/api")
	handlers.NewAuthHandler(authService, sm, log).RegisterRoutes(api)
	handlers.NewProfileHandler(profileService).RegisterRoutes(api, auth)
	handlers.NewMessageHandler(messageService).RegisterRoutes(api, auth)
	handlers.NewSavedItemHandler(itemService).RegisterRoutes(api, auth)
	handlers.NewLetterHandler(letterService).RegisterRoutes(api, auth)
	handlers.NewUploadHandler(uploadService).RegisterRoutes(api, auth)
	api.Use(handlers.APINotFound)

	app.Static(cfg.UploadPublicPath, cfg.UploadDir, fiber.Static{
		ModifyResponse: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
			return nil
		},
	})
	handlers.NewPageHandler(cfg.WebDir).RegisterRoutes(app)
	app.Static("/", cfg.WebDir)
	app.Use(handlers.RedirectHome)
}

// corsConfig allows credentials only for an explicit origin list.
func corsConfig(origins string) cors.Config {
	origins = strings.TrimSpace(origins)
	return cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: origins != "" && origins != "*",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
	}
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	body := fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	if err := database.Ping(ctx, a.db); err != nil {
		status = fiber.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database"] = "unreachable"
	} else {
		body["database"] = "connected"
	}

	switch {
	case a.mq == nil:
		body["rabbitmq"] = "disabled"
	case a.mq.Healthy():
		body["rabbitmq"] = "connected"
	default:
		body["rabbitmq"] = "disconnected"
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["redis"] = "unreachable"
		} else {
			body["redis"] = "connected"
		}
	}

	return c.Status(status).JSON(body)
}

// Listen serves HTTP until Shutdown is called.
func (a *App) Listen() error {
	a.log.WithField("port", a.cfg.Port).Info("Starting server")
	return a.Fiber.Listen(a.cfg.Port)
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// context deadline, then closes every resource.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Fiber.ShutdownWithContext(ctx)
	a.closeResources()
	return err
}

func (a *App) closeResources() {
	if a.sessionStorage != nil {
		if err := a.sessionStorage.Close(); err != nil {
			a.log.WithError(err).Warn("Error closing session storage")
		}
		a.sessionStorage = nil
		a.redis = nil
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			a.log.WithError(err).Warn("Error closing RabbitMQ client")
		}
		a.mq = nil
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.log.WithError(err).Warn("Error closing database")
		}
		a.db = nil
	}
}
