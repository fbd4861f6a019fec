package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/baechuer/tokenauth/internal/logger"
)

// Pool sizing for the user store. Token checks run on every authenticated
// request, so idle connections are kept warm.
const (
	dbMaxOpenConns    = 20
	dbMaxIdleConns    = 10
	dbConnMaxIdleTime = 5 * time.Minute
	dbConnMaxLifetime = time.Hour
	dbPingTimeout     = 3 * time.Second
)

type sqlOpener func(driver, dsn string) (*sql.DB, error)

// NewDB opens a pgx-backed *sql.DB and pings it once before returning.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	return newDB(sql.Open, dsn, debug)
}

func newDB(open sqlOpener, dsn string, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}

	db, err := open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxIdleTime(dbConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if debug {
		logServerInfo(ctx, db)
	}
	return db, nil
}

func logServerInfo(ctx context.Context, db *sql.DB) {
	var who, name, version string
	err := db.QueryRowContext(ctx,
		"SELECT current_user, current_database(), current_setting('server_version')",
	).Scan(&who, &name, &version)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("db connected; server info unavailable")
		return
	}

	logger.Logger.Info().
		Str("user", who).
		Str("db", name).
		Str("version", version).
		Msg("db connected")
}
