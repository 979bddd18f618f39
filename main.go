package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gramaalert-be/config"
	"gramaalert-be/controllers"
	"gramaalert-be/identity"
	"gramaalert-be/logger"
	"gramaalert-be/metrics"
	"gramaalert-be/middlewares"
	"gramaalert-be/models"
	"gramaalert-be/notices"
	"gramaalert-be/notification"
	"gramaalert-be/routes"
	"gramaalert-be/session"
	"gramaalert-be/storage"
	"gramaalert-be/store"
	"gramaalert-be/users"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "gramaalert-be")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logr.Sync()

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		userRepo users.Repository
		backend  store.Backend
	)
	switch cfg.Store.Driver {
	case "memory":
		logr.Warn("STORE_DRIVER=memory: issues and accounts are lost on restart")
		userRepo = users.NewMemoryRepository()
		backend = store.NewMemoryBackend()
	default:
		client, db, err := config.ConnectDB(ctx, cfg.MongoDB, logr)
		if err != nil {
			logr.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer client.Disconnect(context.Background())

		userCol := db.Collection("users")
		issueCol := db.Collection("issues")
		if err := models.EnsureUserIndexes(userCol); err != nil {
			logr.Fatal("Failed to create user indexes", zap.Error(err))
		}
		if err := models.EnsureIssueIndexes(issueCol); err != nil {
			logr.Fatal("Failed to create issue indexes", zap.Error(err))
		}
		userRepo = users.NewMongoRepository(userCol)
		backend = store.NewMongoBackend(issueCol, logr)
	}

	redisClient, err := config.ConnectRedis(ctx, cfg.Redis, logr)
	if err != nil {
		logr.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	var (
		blacklist identity.Blacklist = identity.NewMemoryBlacklist()
		roles     session.RoleCache  = session.NewMemoryRoleCache()
		queue     notices.Queue      = notices.NewMemoryQueue()
	)
	if redisClient != nil {
		defer redisClient.Close()
		blacklist = identity.NewRedisBlacklist(redisClient)
		roles = session.NewRedisRoleCache(redisClient, cfg.Redis.RoleTTL)
		queue = notices.NewRedisQueue(redisClient)
	}

	var blobs storage.BlobStore
	if cfg.MinIO.Endpoint != "" {
		m, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logr.Fatal("Failed to connect to MinIO", zap.Error(err))
		}
		blobs = m
	} else {
		logr.Warn("MINIO_ENDPOINT not set, image uploads are disabled")
	}

	dispatcher := notification.NewDispatcher(
		notification.NewEmailJSSender(cfg.Email),
		notification.Templates{
			Submission:   cfg.Email.SubmissionTemplateID,
			StatusChange: cfg.Email.StatusTemplateID,
			Verification: cfg.Email.VerifyTemplateID,
		},
		cfg.Email.Timeout,
		logr,
	)

	provider := identity.NewProvider(userRepo, blacklist, dispatcher, identity.Options{
		JWTSecret:       cfg.JWT.Secret,
		TokenTTL:        cfg.JWT.TTL,
		AdminAccessCode: cfg.Auth.AdminAccessCode,
		VerifyURL:       cfg.Auth.VerifyURL,
	}, logr)
	sessions := session.NewManager(userRepo, roles, logr)

	issues := store.NewIssueStore(backend, blobs, dispatcher, logr)
	if err := issues.Start(ctx); err != nil {
		logr.Fatal("Failed to subscribe to issues", zap.Error(err))
	}
	logr.Info("Issue subscription established", zap.Int("issues", issues.Stats().Total))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middlewares.AuthMiddleware(provider, sessions, logr))

	routes.AuthRoutes(r, controllers.NewAuthController(provider, sessions, queue, cfg.Server, cfg.JWT.TTL, logr))
	routes.IssueRoutes(r,
		controllers.NewIssueController(issues, queue, cfg.Server.MaxImageBytes, cfg.Server.AllowedOrigins, logr),
		middlewares.NewIssueRateLimiter(redisClient, cfg.RateLimit.QueuePrefix, cfg.RateLimit.IssuesPerDay, logr),
	)
	routes.ViewRoutes(r, controllers.NewViewController(queue, logr))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "subscribed": issues.Running()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	serverErr := make(chan error, 1)

	go func() {
		logr.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Environment))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("Failed to start server", zap.Error(err))
		}
	case sig := <-shutdown:
		logr.Info("received signal, shutting down", zap.String("signal", sig.String()))

		shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("graceful shutdown failed, forcing", zap.Error(err))
			_ = server.Close()
		}
		cancel()
		dispatcher.Wait()
		logr.Info("server shutdown complete")
	}
}
