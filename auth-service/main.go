package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chepyr/go-task-manager/auth-service/db"
	"github.com/chepyr/go-task-manager/auth-service/handlers"
	"github.com/chepyr/go-task-manager/shared/auth"
	"github.com/chepyr/go-task-manager/shared/config"
	"github.com/chepyr/go-task-manager/shared/database"
	"github.com/chepyr/go-task-manager/shared/logging"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadAuth()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	initLogger(cfg.Log)

	dbConn := initDB(cfg.DB)
	repo := db.NewUserRepository(dbConn)
	limiter, closeLimiter := initLimiter(cfg)

	handler := &handlers.Handler{
		UserRepo: repo,
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Limiter:  limiter,
		DB:       repo,
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	startServer(server)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				slog.Info("shutting down server")
				return server.Shutdown(ctx)
			},
			"rate-limiter": func(ctx context.Context) error {
				return closeLimiter()
			},
		},
	)
	exitCode := database.CloseAfter(wait, dbConn)
	slog.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}

func initLogger(cfg config.Logging) {
	logger, err := logging.New(os.Stderr, cfg.Level, cfg.Format)
	if err != nil {
		log.Fatalf("Invalid logging configuration: %v", err)
	}
	slog.SetDefault(logger.With("service", "auth"))
}

func initDB(cfg config.Database) *sql.DB {
	ctx := context.Background()
	dbConn, err := database.Connect(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(ctx, dbConn, db.Schema); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	return dbConn
}

// initLimiter picks the Redis-backed limiter when REDIS_URL is set so that
// replicas share counters, and falls back to the in-process one otherwise.
func initLimiter(cfg *config.Auth) (handlers.Limiter, func() error) {
	if cfg.RedisURL == "" {
		rl := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		return rl, rl.Close
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable at startup; rate limiter fails open until it recovers", "error", err)
	}
	slog.Info("using redis rate limiter", "addr", opts.Addr)
	return handlers.NewRedisLimiter(client, cfg.RateLimit, cfg.RateWindow), client.Close
}

func startServer(server *http.Server) {
	slog.Info("starting auth server", "addr", server.Addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()
}
