package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stock-rotation/backend-go/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = config.Load().Database.DSN()
	}

	// Initialize database connection
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := sqlDB.PingContext(c.Context); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(sqlx.NewDb(sqlDB, "pgx")))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

// withDB gives a leaf command the db-url flag and the connection hooks.
func withDB(cmd *cli.Command) *cli.Command {
	if len(cmd.Subcommands) > 0 {
		for _, sub := range cmd.Subcommands {
			withDB(sub)
		}
		return cmd
	}
	cmd.Flags = append([]cli.Flag{newDBURLFlag()}, cmd.Flags...)
	cmd.Before = initDB
	cmd.After = closeDB
	return cmd
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)

	app := &cli.App{
		Name:  "rotation",
		Usage: "Inventory rotation analysis and purchase proposals",
		Commands: []*cli.Command{
			withDB(migrateCommand()),
			withDB(analyzeCommand()),
			withDB(proposalsCommand()),
			withDB(exportCommand()),
			withDB(importPeriodsCommand()),
			withDB(ignoreCommand()),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("Command failed")
	}
}
