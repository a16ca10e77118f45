package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const (
	maxRetries    = 5
	retryInterval = 2 * time.Second
)

// Open connects to the configured database, retrying the initial ping.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	switch cfg.Dialect {
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a shared in-memory database must keep one connection alive
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", fmt.Sprintf("Using SQLite database %s", cfg.SQLitePath))
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres", "":
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}
	switch cfg.Driver {
	case "pq", "pgdriver", "":
	default:
		return nil, fmt.Errorf("unsupported postgres driver %q", cfg.Driver)
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = openPostgres(cfg)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", maxRetries, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", fmt.Sprintf("PostgreSQL connection successful (%s:%s/%s)", cfg.Host, cfg.Port, cfg.Database))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func openPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Driver == "pgdriver" {
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL()))), nil
	}
	return sql.Open("postgres", cfg.DSN())
}

// CreateSchema creates every table from the bun models. Used for SQLite, where
// the Postgres migrations do not apply.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range models.All() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// ResetSchema drops and recreates every table.
func ResetSchema(ctx context.Context, db *bun.DB) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(all[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", all[i], err)
		}
	}
	return CreateSchema(ctx, db)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ContainsPattern lowercases term and wraps it for a LIKE ... ESCAPE '\'
// match, so % and _ in term match literally.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
