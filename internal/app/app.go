package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/admitlens/core/internal/config"
	"github.com/admitlens/core/internal/database"
	"github.com/admitlens/core/internal/middleware"
	"github.com/admitlens/core/internal/modules/essay"
	"github.com/admitlens/core/internal/pkg/jwt"
	"github.com/admitlens/core/internal/pkg/ratelimit"
)

const startupTimeout = 15 * time.Second

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *mongo.Database
	limiter *ratelimit.Service
	logger  *zap.Logger
}

// New initializes the application: config validation → store → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	jwt.SetSecret(cfg.JWTSecret)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	sessionRepo := essay.NewMongoRepository(db)
	if err := sessionRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("indexes: %w", err)
	}

	adapter, err := essay.NewAdapter(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("feedback provider: %w", err)
	}
	logger.Info("feedback provider resolved", zap.String("backend", adapter.Name()))

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.WithRequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	limiter := ratelimit.New(ratelimit.Options{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window,
	})

	app := &App{cfg: cfg, router: router, db: db, limiter: limiter, logger: logger}
	app.registerRoutes(sessionRepo, adapter)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown releases the store connection.
func (a *App) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Disconnect(ctx); err != nil {
		a.logger.Warn("mongo disconnect", zap.Error(err))
	}
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	}
	return corsCfg
}
