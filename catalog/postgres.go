package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultCatalogQuery = `SELECT generic, COALESCE(medicine_name, ''), brand, strength, type, COALESCE(price, 0)::float8
FROM medicines
ORDER BY generic, strength, type, brand`

// PostgresLoader reads the catalog from a medicines table.
type PostgresLoader struct {
	DSN   string
	Query string
}

func NewPostgresLoader(dsn string) *PostgresLoader {
	return &PostgresLoader{DSN: dsn, Query: defaultCatalogQuery}
}

// Describe hides the password of the DSN.
func (l *PostgresLoader) Describe() string {
	u, err := url.Parse(l.DSN)
	if err != nil {
		return "postgres"
	}
	return "postgres:" + u.Redacted()
}

// Load opens a short-lived pool, reads every row and closes the pool.
// Reloads run a few times a day so there is no point holding connections.
func (l *PostgresLoader) Load(ctx context.Context) ([]entities.MedicineOption, error) {
	cfg, err := pgxpool.ParseConfig(l.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	rows, err := pool.Query(ctx, l.Query)
	if err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}

	options, err := pgx.CollectRows(rows, scanMedicineRow)
	if err != nil {
		return nil, fmt.Errorf("scan medicines: %w", err)
	}
	return options, nil
}

func scanMedicineRow(row pgx.CollectableRow) (entities.MedicineOption, error) {
	var m entities.MedicineOption
	err := row.Scan(&m.Generic, &m.MedicineName, &m.Brand, &m.Strength, &m.Type, &m.Price)
	return m, err
}
