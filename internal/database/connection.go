package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"crm-backoffice/internal/config"
	"crm-backoffice/internal/logger"
)

const pingTimeout = 6 * time.Second

// NewConnection opens the application database, creating it through the
// maintenance database when PostgreSQL reports it missing.
func NewConnection(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	log := logger.WithComponent("database")

	db, err := open(ctx, cfg.GetDSN())
	if err != nil {
		if !isInvalidCatalog(err) {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}

		log.Warn().Str("database", cfg.Database.Name).Msg("Database does not exist, attempting to create it")
		if err := createDatabase(ctx, cfg); err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Database.Name).Msg("Successfully created database")

		db, err = open(ctx, cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("error verifying connection to new database: %w", err)
		}
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info().Str("host", cfg.Database.Host).Msg("Successfully connected to PostgreSQL database")
	return db, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func createDatabase(ctx context.Context, cfg *config.Config) error {
	rootDB, err := open(ctx, cfg.GetMaintenanceDSN())
	if err != nil {
		return fmt.Errorf("error connecting to maintenance database: %w", err)
	}
	defer rootDB.Close()

	ident := pgx.Identifier{cfg.Database.Name}.Sanitize()
	if _, err := rootDB.ExecContext(ctx, "CREATE DATABASE "+ident+" ENCODING 'UTF8'"); err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	return nil
}

func isInvalidCatalog(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidCatalogName
}
