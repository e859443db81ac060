package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/code-pulse/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applicationName shows up in pg_stat_activity for every pooled connection.
const applicationName = "code-pulse"

// migrationsTable keeps the schema version apart from other tools sharing the database.
const migrationsTable = "pulse_schema_migrations"

// DB is a wrapper around the sqlx.DB connection pool.
type DB struct {
	*sqlx.DB
}

// DSN renders the lib/pq connection URL for cfg.
func DSN(cfg *config.DBConfig) string {
	q := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	q.Set("application_name", applicationName)
	if cfg.ConnectTimeout > 0 {
		secs := int(cfg.ConnectTimeout.Round(time.Second) / time.Second)
		q.Set("connect_timeout", strconv.Itoa(max(secs, 1)))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewDatabase opens the connection pool sized from cfg and, unless disabled,
// brings the schema up to date.
func NewDatabase(cfg *config.DBConfig) (*DB, func(), error) {
	conn, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(conn, cfg)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to reach database %s at %s:%d: %w", cfg.Database, cfg.Host, cfg.Port, err)
	}

	db := &DB{DB: conn}

	if cfg.MigrateOnStart {
		version, err := db.RunMigrations()
		if err != nil {
			_ = conn.Close()
			return nil, func() {}, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("database schema is current", "database", cfg.Database, "version", version)
	}

	return db, func() {
		if err := conn.Close(); err != nil {
			slog.Error("failed to close database connection", "error", err)
		}
	}, nil
}

func configurePool(conn *sqlx.DB, cfg *config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// RunMigrations applies the embedded migrations and returns the resulting
// schema version. A dirty schema is reported instead of being forced.
func (db *DB) RunMigrations() (uint, error) {
	migrator, err := db.newMigrator()
	if err != nil {
		return 0, err
	}

	_, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("schema in %s is dirty; fix the failed migration and run 'migrate force <version>'", migrationsTable)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read migrated version: %w", err)
	}
	return version, nil
}

func (db *DB) newMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}
