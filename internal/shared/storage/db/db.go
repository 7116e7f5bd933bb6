package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"voicecare-backend/internal/shared/telemetry"
)

const defaultApplicationName = "voicecare-relay"

// Options controls the pool and per-session settings.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// StatementTimeout is sent as the statement_timeout session parameter.
	StatementTimeout time.Duration
	ApplicationName  string
}

var openDB = func(cfg *pgx.ConnConfig) *sql.DB {
	return stdlib.OpenDB(*cfg)
}

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultOptions picks pool defaults for the current runtime. Lambda
// environments each hold their own pool, so they stay small.
func DefaultOptions() Options {
	if IsLambdaRuntime() {
		return Options{
			MaxOpenConns:     2,
			MaxIdleConns:     1,
			ConnMaxIdleTime:  30 * time.Second,
			ConnMaxLifetime:  15 * time.Minute,
			PingTimeout:      3 * time.Second,
			StatementTimeout: 15 * time.Second,
		}
	}
	return Options{
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxIdleTime:  2 * time.Minute,
		ConnMaxLifetime:  time.Hour,
		PingTimeout:      5 * time.Second,
		StatementTimeout: 15 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ApplicationName: defaultApplicationName + "-migrate",
	}
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	if v, ok := readEnv("DB_MAX_OPEN_CONNS", strconv.Atoi); ok {
		opts.MaxOpenConns = v
	}
	if v, ok := readEnv("DB_MAX_IDLE_CONNS", strconv.Atoi); ok {
		opts.MaxIdleConns = v
	}
	if v, ok := readEnv("DB_CONN_MAX_LIFETIME", time.ParseDuration); ok {
		opts.ConnMaxLifetime = v
	}
	if v, ok := readEnv("DB_CONN_MAX_IDLE_TIME", time.ParseDuration); ok {
		opts.ConnMaxIdleTime = v
	}
	if v, ok := readEnv("DB_PING_TIMEOUT", time.ParseDuration); ok {
		opts.PingTimeout = v
	}
	if v, ok := readEnv("DB_STATEMENT_TIMEOUT", time.ParseDuration); ok {
		opts.StatementTimeout = v
	}
	if v := strings.TrimSpace(os.Getenv("DB_APPLICATION_NAME")); v != "" {
		opts.ApplicationName = v
	}
	return opts
}

// Connect opens a pgx-backed *sql.DB and verifies connectivity. The caller
// owns the handle and passes it to the repositories that need it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	connCfg, err := ConnConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	db := openDB(connCfg)
	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, connCfg)
	return db, nil
}

// ConnConfig parses the URL and applies the session parameters in opts.
func ConnConfig(databaseURL string, opts Options) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	name := opts.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	if _, set := connCfg.RuntimeParams["application_name"]; !set {
		connCfg.RuntimeParams["application_name"] = name
	}
	if opts.StatementTimeout > 0 {
		connCfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	return connCfg, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, cfg *pgx.ConnConfig) {
	stats := db.Stats()
	telemetry.Info("db.pool_init", map[string]any{
		"host":        cfg.Host,
		"database":    cfg.Database,
		"application": cfg.RuntimeParams["application_name"],
		"max_open":    stats.MaxOpenConnections,
		"open":        stats.OpenConnections,
	})
}

func readEnv[T any](key string, parse func(string) (T, error)) (T, bool) {
	var zero T
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return zero, false
	}
	val, err := parse(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err})
		return zero, false
	}
	return val, true
}
