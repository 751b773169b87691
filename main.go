package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendzn-restful/auth"
	"trendzn-restful/config"
	"trendzn-restful/controllers"
	"trendzn-restful/database"
	grpcserver "trendzn-restful/grpc_server"
	"trendzn-restful/metrics"
	"trendzn-restful/ratelimit"
	"trendzn-restful/repositories"
	"trendzn-restful/scheduler"
	"trendzn-restful/services"
	"trendzn-restful/storage"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	switch level {
	case "debug":
		logger, _ = zap.NewDevelopment()
	case "info":
		logger, _ = zap.NewProduction()
	default:
		cfg := zap.NewProductionConfig()
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = lvl
		}
		logger, _ = cfg.Build()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.ImageStore, string, error) {
	switch cfg.Backend {
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg)
		return store, "", err
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	}
}

func main() {
	// Initialize configs
	config.InitConfig()
	cfg := &config.AppConfig

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	if cfg.InsecureSecret() {
		logger.Warn("Using the built-in JWT secret; set TRENDZN_JWT_SECRET outside development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.InitDB(logger)

	images, uploadDir, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize image storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	paging := services.NewPaging(cfg.App)

	users := repositories.NewUserRepository(db)
	trends := repositories.NewTrendRepository(db)
	templates := repositories.NewTemplateRepository(db)
	memes := repositories.NewMemeRepository(db)
	snapshots := repositories.NewAnalyticsRepository(db)

	authService := services.NewAuthService(users, tokens, cfg.App.BcryptCost, logger)
	analyticsService := services.NewAnalyticsService(snapshots, users, trends, templates, memes, logger)

	appMetrics := metrics.New(prometheus.NewRegistry())

	var authLimiter restful.FilterFunction
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable; rate limiting fails open", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		limiter := ratelimit.NewLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.ServiceName+":ratelimit", logger)
		if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
			logger.Fatal("Invalid rate_limit.trusted_proxies", zap.Error(err))
		}
		limiter.OnLimited = appMetrics.RecordRateLimited
		authLimiter = limiter.Filter()
	}

	container := controllers.NewContainer(controllers.Options{
		Tokens:         tokens,
		Auth:           authService,
		Trends:         services.NewTrendService(trends, images, paging, logger),
		Templates:      services.NewTemplateService(templates, images, paging, logger),
		Memes:          services.NewMemeService(memes, templates, trends, images, paging, logger),
		Admin:          services.NewAdminService(users, trends, templates, memes, paging, logger),
		Analytics:      analyticsService,
		Search:         services.NewSearchService(trends, templates),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		UploadDir:      uploadDir,
		Verbose:        !cfg.IsProduction(),
		AuthLimiter:    authLimiter,
		Metrics:        appMetrics,
		Log:            logger,
		Started:        time.Now(),
	})

	jobs, err := scheduler.New(cfg.Analytics.Cron, cfg.Analytics.StartupDelay, func(ctx context.Context) error {
		_, err := analyticsService.Refresh(ctx)
		appMetrics.RecordAnalyticsRefresh(err)
		return err
	}, logger)
	if err != nil {
		logger.Fatal("Invalid analytics schedule", zap.String("cron", cfg.Analytics.Cron), zap.Error(err))
	}
	jobs.Start()
	defer jobs.Stop()

	grpcServer, grpcHealth := grpcserver.NewServer(authService, tokens, logger)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Int("port", cfg.GRPCPort), zap.Error(err))
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	// Use the port number in the configuration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           container,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	grpcHealth.SetServingStatus(grpcserver.AuthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
}
