package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/hoaxify/hoaxify-server/internal/auth"
	"github.com/hoaxify/hoaxify-server/internal/config"
	"github.com/hoaxify/hoaxify-server/internal/database"
	"github.com/hoaxify/hoaxify-server/internal/email"
	"github.com/hoaxify/hoaxify-server/internal/hoax"
	httpServer "github.com/hoaxify/hoaxify-server/internal/http"
	"github.com/hoaxify/hoaxify-server/internal/logging"
	"github.com/hoaxify/hoaxify-server/internal/ratelimit"
	"github.com/hoaxify/hoaxify-server/internal/storage"
	"github.com/hoaxify/hoaxify-server/internal/token"
	"github.com/hoaxify/hoaxify-server/internal/user"
)

// @title           Hoaxify API
// @version         1.0
// @description     The Hoaxify backend: accounts, session tokens, and hoaxes with file attachments.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db.DB); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize file storage
	files, uploadsDir, err := initFileStore(cfg.Uploads)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize email service
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	// Initialize repositories and services
	tokenRepo := token.NewPostgresRepository(db)
	tokenService := token.NewService(tokenRepo, cfg.Auth.TokenWindow)

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, tokenService, emailService, files, logger)

	authService := auth.NewService(userRepo, tokenService, logger)

	hoaxRepo := hoax.NewRepository(db)
	hoaxService := hoax.NewService(hoaxRepo, userRepo, files, logger)

	// Background workers
	reaper := token.NewReaper(tokenRepo, logger, cfg.Auth.ReapInterval, cfg.Auth.TokenWindow)
	reaper.Start()
	defer reaper.Stop()

	cleaner := hoax.NewCleaner(hoaxService, logger, 0, 0)
	cleaner.Start()
	defer cleaner.Stop()

	// Initialize HTTP handlers
	userHandler := user.NewHandler(userService, rateLimiter, logger)
	authHandler := auth.NewHandler(authService, userService, rateLimiter, logger)
	hoaxHandler := hoax.NewHandler(hoaxService, logger)

	// Initialize router
	router := httpServer.NewRouter(cfg, userHandler, authHandler, hoaxHandler, tokenService, logger, uploadsDir)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initFileStore builds the configured upload backend. The returned dir is
// non-empty only for the local backend, where the router serves it under
// /images.
func initFileStore(cfg config.UploadConfig) (storage.FileStore, string, error) {
	switch cfg.Backend {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		return storage.NewS3(s3.NewFromConfig(awsCfg), cfg.Bucket), "", nil
	case "local":
		local, err := storage.NewLocal(cfg.Dir)
		if err != nil {
			return nil, "", err
		}
		return local, cfg.Dir, nil
	default:
		return nil, "", fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}
