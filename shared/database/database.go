package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDriver is go-sqlite3 with lower() folding Unicode letters the way
// Postgres does. The built-in one only folds ASCII.
const SQLiteDriver = "sqlite3_unicode"

func init() {
	sql.Register(SQLiteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
}

// Connect opens a pool for the registered driver and verifies it with a ping.
// "sqlite3" is served by SQLiteDriver.
func Connect(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	openAs := driverName
	if driverName == "sqlite3" {
		openAs = SQLiteDriver
	}
	db, err := sql.Open(openAs, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if driverName == "sqlite3" {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return db, nil
}

// Migrate applies an idempotent DDL script.
func Migrate(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CloseAfter blocks until the shutdown exit code arrives on wait and only
// then closes db. Shutdown operations run concurrently, so any of them may
// still be using the pool until wait yields.
func CloseAfter(wait <-chan int, db io.Closer) int {
	exitCode := <-wait
	if err := db.Close(); err != nil {
		slog.Error("close database", "error", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}
