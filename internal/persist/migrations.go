package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const schemaDir = "migrations"

//go:embed migrations/*.sql
var schema embed.FS

// migrate applies pending copy store migrations and returns the schema
// version the database ends on.
func migrate(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) (int64, error) {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(schema)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if err := goose.UpContext(ctx, db, schemaDir); err != nil {
		return before, fmt.Errorf("up from version %d: %w", before, err)
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return before, fmt.Errorf("read schema version: %w", err)
	}
	if after != before {
		log.Info("資料庫遷移完成", zap.Int64("from", before), zap.Int64("to", after))
	}
	return after, nil
}
