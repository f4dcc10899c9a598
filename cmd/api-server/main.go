package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/task-manager-api/api/swagger"
	"github.com/noah-isme/task-manager-api/internal/handler"
	"github.com/noah-isme/task-manager-api/internal/middleware"
	"github.com/noah-isme/task-manager-api/internal/repository"
	"github.com/noah-isme/task-manager-api/internal/service"
	"github.com/noah-isme/task-manager-api/pkg/cache"
	"github.com/noah-isme/task-manager-api/pkg/config"
	"github.com/noah-isme/task-manager-api/pkg/database"
	"github.com/noah-isme/task-manager-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/task-manager-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/task-manager-api/pkg/middleware/requestid"
	"github.com/noah-isme/task-manager-api/pkg/token"
)

// @title Task Manager API
// @version 1.0.0
// @description Token-based authentication and per-user task management
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient, logr)

	codec := token.NewCodec(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, tokenRepo, codec, validate, logr, cfg.JWT.RefreshExpiration)
	taskService := service.NewTaskService(taskRepo, validate, logr)
	exportService := service.NewExportService(taskRepo, logr)

	r := newRouter(cfg, logr, redisClient, authService, taskService, exportService, metricsService)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

func newRouter(
	cfg *config.Config,
	logr *zap.Logger,
	redisClient *redis.Client,
	authService *service.AuthService,
	taskService *service.TaskService,
	exportService *service.ExportService,
	metricsService *service.MetricsService,
) *gin.Engine {
	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService, exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	session := middleware.Session(authService, metricsService)
	limit := func(endpoint string, budget config.Budget) gin.HandlerFunc {
		return middleware.RateLimit(redisClient, logr, metricsService, endpoint, budget)
	}

	r.POST("/register", limit("register", cfg.RateLimit.Register), authHandler.Register)
	r.POST("/token", limit("login", cfg.RateLimit.Login), authHandler.Token)
	r.POST("/token/refresh", limit("refresh", cfg.RateLimit.Refresh), authHandler.Refresh)
	r.POST("/token/revoke", authHandler.Revoke)

	auth := r.Group("/auth", session)
	auth.GET("/me", authHandler.Me)
	auth.POST("/logout", authHandler.Logout)

	// The limiter precedes the session check so unauthenticated floods
	// count against the budget too.
	tasks := r.Group("/tasks")
	tasks.GET("/", limit("task_list", cfg.RateLimit.TaskList), session, taskHandler.List)
	tasks.POST("/", limit("task_create", cfg.RateLimit.TaskCreate), session, taskHandler.Create)
	tasks.GET("/export", session, taskHandler.Export)
	tasks.PUT("/:id", session, taskHandler.Update)
	tasks.DELETE("/:id", session, taskHandler.Delete)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
