package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chepyr/go-task-manager/shared/auth"
	"github.com/chepyr/go-task-manager/shared/config"
	"github.com/chepyr/go-task-manager/shared/database"
	"github.com/chepyr/go-task-manager/shared/logging"
	"github.com/chepyr/go-task-manager/tasks-service/db"
	"github.com/chepyr/go-task-manager/tasks-service/handlers"
	"github.com/chepyr/go-task-manager/tasks-service/purger"
	"github.com/chepyr/go-task-manager/tasks-service/service"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	_ "github.com/lib/pq"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadTasks()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	initLogger(cfg.Log)

	dbConn := initDB(cfg.DB)
	repo := db.NewTaskRepository(dbConn)

	handler := &handlers.Handler{
		Tasks:  service.New(repo),
		Tokens: auth.NewTokenManager(cfg.JWTSecret, 0),
		DB:     repo,
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopPurger := startPurger(repo, cfg.TrashPurgeInterval)
	startServer(server)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				slog.Info("shutting down server")
				return server.Shutdown(ctx)
			},
			"trash-purger": func(ctx context.Context) error {
				stopPurger()
				return nil
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
	slog.SetDefault(logger.With("service", "tasks"))
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

// startPurger returns a stop function that blocks until the purger has exited.
func startPurger(repo *db.TaskRepository, interval time.Duration) func() {
	if interval <= 0 {
		slog.Info("trash purge disabled; expired tasks are only hidden")
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		purger.New(repo, interval, service.TrashRetention, slog.Default()).Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func startServer(server *http.Server) {
	slog.Info("starting tasks server", "addr", server.Addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()
}
