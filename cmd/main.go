package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmicwatch/internal/auth"
	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/config"
	"cosmicwatch/internal/handlers"
	"cosmicwatch/internal/logger"
	"cosmicwatch/internal/middleware"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/service"
	"cosmicwatch/internal/worker"
	"cosmicwatch/pkg/database"
	"cosmicwatch/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

func main() {
	// Загрузка .env
	envErr := godotenv.Load()

	// Загрузка конфигурации
	cfg := config.Load()
	logger.Init(cfg.App.LogLevel, cfg.App.Debug)
	log := logger.Component("main")

	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}
	log.Infof("=== %s %s starting ===", cfg.App.Name, cfg.App.Version)

	// Подключение к базе
	db, err := database.Connect(database.Config{
		Driver:     cfg.DB.Driver,
		URL:        cfg.DB.URL,
		Host:       cfg.DB.Host,
		Port:       cfg.DB.Port,
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		DBName:     cfg.DB.DBName,
		SSLMode:    cfg.DB.SSLMode,
		SQLitePath: cfg.DB.SQLitePath,
		Debug:      cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	// Автомиграция моделей
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis необязателен: без него кэш живет в памяти процесса
	var redisClient *goredis.Client
	cacheRepo := repository.NewMemoryCacheRepository(10 * time.Minute)
	if cfg.Redis.Enabled {
		redisClient, err = redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warnf("Redis unavailable, using in-memory cache: %v", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}

	// Инициализация репозиториев
	asteroidRepo := repository.NewAsteroidRepository(db)
	approachRepo := repository.NewCloseApproachRepository(db)
	ingestRepo := repository.NewIngestRepository(db)
	userRepo := repository.NewUserRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	neoClient := clients.NewNEOClient(clients.NEOConfig{
		APIKey:  cfg.NASA.APIKey,
		BaseURL: cfg.NASA.NEOURL,
	})

	tokens, err := auth.NewJWTManager(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTL)
	if err != nil {
		log.Fatalf("Invalid auth configuration: %v", err)
	}

	// Инициализация сервисов
	authService := service.NewAuthService(userRepo, tokens, auth.NewPasswordHasher(bcrypt.DefaultCost))
	asteroidService := service.NewAsteroidService(asteroidRepo, approachRepo, ingestRepo, cacheRepo, neoClient)
	watchlistService := service.NewWatchlistService(watchlistRepo, asteroidRepo)
	alertService := service.NewAlertService(alertRepo, watchlistRepo)
	systemService := service.NewSystemService(asteroidRepo, approachRepo, userRepo, alertRepo, cacheRepo)

	// Фоновые задачи
	scheduler := worker.NewScheduler()
	if cfg.Workers.Enabled {
		scheduler.AddWorker(worker.NewIngestWorker(asteroidService, cfg.Workers.IngestInterval,
			cfg.Workers.IngestInitialDelay, cfg.Workers.IngestRetryDelay))
		scheduler.AddWorker(worker.NewAlertWorker(alertService, cfg.Workers.AlertInterval, cfg.Workers.AlertWindowDays))
		log.WithField("ingest_interval", cfg.Workers.IngestInterval.String()).
			WithField("alert_interval", cfg.Workers.AlertInterval.String()).
			Info("Scheduler enabled")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Инициализация Gin
	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Info("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	// CORS для фронтенда
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.App.AllowedOrigins, cfg.App.FrontendURL),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting (только для продакшена)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	if !cfg.App.Debug {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		go limiter.RunCleanup(time.Minute, 10*time.Minute, stopCleanup)
		r.Use(middleware.IPRateLimitMiddleware(limiter))
		log.Infof("Rate limiting enabled: %d req/sec, burst: %d",
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	checks := []handlers.HealthCheck{{Name: "database", Check: sqlDB.PingContext}}
	var redisStats func(ctx context.Context) (map[string]string, error)
	if redisClient != nil {
		checks = append(checks, handlers.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		redisStats = func(ctx context.Context) (map[string]string, error) {
			return redis.GetStats(ctx, redisClient)
		}
	}

	info := handlers.SystemInfo{Name: cfg.App.Name, Version: cfg.App.Version}
	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Asteroid:  handlers.NewAsteroidHandler(asteroidService),
		Watchlist: handlers.NewWatchlistHandler(watchlistService),
		Alert:     handlers.NewAlertHandler(alertService, cfg.Workers.AlertWindowDays),
		System:    handlers.NewSystemHandler(systemService, asteroidService, info, checks, redisStats),
	}, authService)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server starting on http://localhost:%s", cfg.App.Port)
		log.Infof("API available at http://localhost:%s/api/v1", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited properly")
}

// allowedOrigins добавляет FRONTEND_URL к списку, без повторов.
func allowedOrigins(origins []string, frontendURL string) []string {
	seen := make(map[string]bool, len(origins)+1)
	var result []string
	for _, origin := range append(append([]string{}, origins...), frontendURL) {
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		result = append(result, origin)
	}
	return result
}
