package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 32

type Database struct {
	Driver string
	DSN    string
}

type Logging struct {
	Level  string
	Format string
}

type Auth struct {
	Port            string
	JWTSecret       string
	TokenTTL        time.Duration
	RateLimit       int
	RateWindow      time.Duration
	RedisURL        string
	ShutdownTimeout time.Duration
	DB              Database
	Log             Logging
}

type Tasks struct {
	Port               string
	JWTSecret          string
	TrashPurgeInterval time.Duration
	ShutdownTimeout    time.Duration
	DB                 Database
	Log                Logging
}

// LoadDotEnv loads .env when the file exists; a missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		log.Println(".env file not found, relying on environment variables")
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}
}

func LoadAuth() (*Auth, error) {
	var errs []error
	cfg := &Auth{
		Port:     getenv("SERVER_PORT", "8081"),
		RedisURL: os.Getenv("REDIS_URL"),
		Log:      loadLogging(),
	}
	var err error
	if cfg.JWTSecret, err = jwtSecret(); err != nil {
		errs = append(errs, err)
	}
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimit, err = positiveInt("LOGIN_RATE_LIMIT", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateWindow, err = duration("LOGIN_RATE_WINDOW", 15*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.DB, err = loadDatabase(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func LoadTasks() (*Tasks, error) {
	var errs []error
	cfg := &Tasks{
		Port: getenv("SERVER_PORT_TASKS", "8080"),
		Log:  loadLogging(),
	}
	var err error
	if cfg.JWTSecret, err = jwtSecret(); err != nil {
		errs = append(errs, err)
	}
	if cfg.TrashPurgeInterval, err = duration("TRASH_PURGE_INTERVAL", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.DB, err = loadDatabase(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func loadDatabase() (Database, error) {
	driver := getenv("DB_DRIVER", "postgres")
	switch driver {
	case "sqlite3":
		return Database{Driver: driver, DSN: getenv("SQLITE_PATH", "tasks.db")}, nil
	case "postgres":
	default:
		return Database{}, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", driver)
	}

	required := []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"POSTGRES_HOST", "POSTGRES_PORT",
	}
	for _, env := range required {
		if os.Getenv(env) == "" {
			return Database{}, fmt.Errorf("environment variable %s must be set", env)
		}
	}
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("POSTGRES_HOST"), os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("POSTGRES_DB"), os.Getenv("POSTGRES_PORT"))
	return Database{Driver: driver, DSN: dsn}, nil
}

func loadLogging() Logging {
	return Logging{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")}
}

func jwtSecret() (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < minJWTSecretLength {
		return "", fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	return secret, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}

func positiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
