package initializers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storyfeed-api/pkg/config"
	"storyfeed-api/pkg/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type DBConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	Attempts     int
	RetryDelay   time.Duration
}

func DBConfigFromEnv(url string) DBConfig {
	return DBConfig{
		URL:          url,
		MaxOpenConns: config.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns: config.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		Attempts:     config.GetEnvInt("DB_CONNECT_ATTEMPTS", 10),
		RetryDelay:   2 * time.Second,
	}
}

// ConnectDB opens the pool and pings it, retrying while the database is
// still starting up.
func ConnectDB(ctx context.Context, cfg DBConfig, logger logging.Logger) (*sql.DB, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := sql.Open("postgres", cfg.URL)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				db.SetMaxOpenConns(cfg.MaxOpenConns)
				db.SetMaxIdleConns(cfg.MaxIdleConns)
				db.SetConnMaxLifetime(30 * time.Minute)
				return db, nil
			}
			db.Close()
		}
		lastErr = err
		logger.WithError(err).WithField("attempt", i+1).Warn("DB connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("could not connect to database: %w", lastErr)
}

// RunMigrations applies every pending migration found at sourceURL.
func RunMigrations(db *sql.DB, sourceURL string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
