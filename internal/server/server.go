// Package server contains the HTTP handlers and middleware wiring of the
// posts and replies API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"teamsemu/internal/cache"
	"teamsemu/internal/config"
	"teamsemu/internal/database"
	_ "teamsemu/internal/docs" // swagger docs
	"teamsemu/internal/middleware"
	"teamsemu/internal/models"
	"teamsemu/internal/seed"
	"teamsemu/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const serviceName = "teamsemu-api"

// Server owns the store, the optional Redis client and the Fiber app.
type Server struct {
	config         *config.Config
	store          store.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
}

// NewServer opens the configured store and Redis connection and seeds the
// sample thread when enabled.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	st, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store initialization failed: %w", err)
	}

	redisClient, err := cache.InitRedis(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.RateLimitWrites > 0 {
			_ = st.Close()
			return nil, err
		}
		middleware.Logger.Warn("continuing without redis", slog.String("error", err.Error()))
	}

	if cfg.SeedSampleData {
		res, err := seed.SeedIfEmpty(ctx, st)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to seed sample data: %w", err)
		}
		if res.Posts > 0 {
			middleware.Logger.Info("seeded sample data",
				slog.Int("posts", res.Posts),
				slog.Int("replies", res.Replies))
		}
	}

	return NewServerWithDeps(cfg, st, redisClient)
}

// NewServerWithDeps creates a server around already constructed dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, st store.Store, redisClient *redis.Client) (*Server, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	return &Server{
		config:         cfg,
		store:          st,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
	}, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Teams Emulator API",
		BodyLimit: 1 * 1024 * 1024,
		// Path params and headers outlive the request inside the store and
		// in exported spans.
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures all global middleware for the application
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes registers the API, health and metrics routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Index)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	if s.config.RateLimitWrites > 0 && s.redis != nil {
		policy := middleware.FailOpen
		if s.config.IsProduction() {
			policy = middleware.FailClosed
		}
		api.Use(middleware.WritesOnly(middleware.RateLimitWithPolicy(
			s.redis, s.config.Env, s.config.RateLimitWrites, time.Minute, policy, "writes")))
	}

	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Get("/full", s.ListPostsFull)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)
	posts.Get("/:id/replies", s.ListReplies)
	posts.Post("/:id/replies", s.CreatePostReply)

	replies := api.Group("/replies")
	replies.Post("/", s.CreateReply)
	replies.Put("/:id", s.UpdateReply)
	replies.Delete("/:id", s.DeleteReply)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the store and, when configured, Redis answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port. It blocks until
// the listener stops.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP listener and releases the store and Redis client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
