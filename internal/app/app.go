package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"forum_backend/database"
	"forum_backend/internal/auth"
	"forum_backend/internal/config"
	"forum_backend/internal/database/dbretry"
	"forum_backend/internal/handlers"
	"forum_backend/internal/logger"
	"forum_backend/internal/middleware"
	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/internal/routes"
	"forum_backend/internal/services"
	"forum_backend/internal/validator"
	"forum_backend/internal/workers"
	"forum_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Run serves HTTP and WebSocket traffic until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxRetries)
	if err != nil {
		return err
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		return fmt.Errorf("failed to seed first admin user: %w", err)
	}

	hub := ws.NewHub(ws.HubConfig{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: cfg.PingInterval(),
	})

	var bridge *ws.RedisBridge
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		bridge = ws.NewRedisBridge(rdb, cfg.Redis.Channel)
		hub.SetBridge(bridge)
	} else {
		logger.Warn("Redis is not configured, realtime events stay on this instance")
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL())
	router := SetupRouter(cfg, gormDB, hub, tokens)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if bridge != nil {
		if err := bridge.Subscribe(ctx, hub.DeliverRemote); err != nil {
			return err
		}
	}

	retention := workers.NewRetentionWorker(gormDB, repositories.NewActionLogRepository(),
		cfg.ActionLogMaxAge(), cfg.SweepInterval())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		retention.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// SetupRouter builds the gin engine with every route. hub receives every
// realtime event the services emit. opts override the service options
// derived from cfg.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, hub *ws.Hub, tokens *auth.TokenManager, opts ...services.Option) *gin.Engine {
	// 1. Services
	serviceContainer := initializeServices(cfg, hub, opts...)

	// 2. Handlers
	appHandlers := handlers.NewAppHandlers(serviceContainer, validator.New())

	// 3. WebSocket
	wsHandler := ws.NewWebSocketHandler(hub)

	// 4. Gin
	ginRouter := initializeGinRouter(gormDB)

	// 5. Routes
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, middleware.AuthMiddleware(tokens))

	return ginRouter
}

func initializeServices(cfg *config.Config, hub *ws.Hub, extra ...services.Option) *services.ServiceContainer {
	opts := []services.Option{
		services.WithFanoutWorkers(cfg.Realtime.FanoutWorkers),
		services.WithRetryPolicy(dbretry.DefaultPolicy.WithMaxRetries(cfg.Database.MaxRetries)),
	}
	return services.NewServiceContainer(services.NewRepositories(), hub, append(opts, extra...)...)
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

// seedFirstAdmin creates the configured admin and its subreddit once.
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	username := cfg.Seed.AdminUsername
	if username == "" {
		logger.Warn("FIRST_ADMIN_USERNAME is not set. Skipping admin seeding.")
		return nil
	}
	subredditName := cfg.Seed.Subreddit
	if subredditName == "" {
		subredditName = "general"
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var adminUser models.User
	result := tx.Where("username = ?", username).First(&adminUser)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "username", username)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	now := time.Now().UTC()
	subreddit := models.Subreddit{Name: subredditName}
	if err := tx.Where("name = ?", subredditName).
		Attrs(models.Subreddit{BaseModel: models.BaseModel{CreatedAt: now}}).
		FirstOrCreate(&subreddit).Error; err != nil {
		return fmt.Errorf("failed to create subreddit: %w", err)
	}

	newAdmin := &models.User{
		BaseModel:         models.BaseModel{CreatedAt: now},
		Username:          username,
		IsAdmin:           true,
		SelectedSubreddit: subreddit.Name,
	}
	if err := tx.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	logger.Info("Created first admin user", "username", username, "subreddit", subreddit.Name)
	return tx.Commit().Error
}
