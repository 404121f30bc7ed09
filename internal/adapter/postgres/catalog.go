// Package postgres implements the chemical catalog on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
)

// DB is the subset of *pgxpool.Pool the catalog needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Catalog looks chemicals up in the chemicals table.
type Catalog struct {
	db DB
}

// NewCatalog creates a catalog backed by db.
func NewCatalog(db DB) *Catalog {
	return &Catalog{db: db}
}

// Connect opens a pool and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const lookupSQL = `SELECT name, molecular_weight, thresholds FROM chemicals WHERE name = $1`

// LookupChemical implements domain.ChemicalCatalog. Names match case-insensitively.
func (c *Catalog) LookupChemical(ctx context.Context, name string) (domain.Chemical, error) {
	key := normalizeName(name)
	chem, err := scanChemical(c.db.QueryRow(ctx, lookupSQL, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Chemical{}, fmt.Errorf("%w: %q", domain.ErrChemicalNotFound, name)
	}
	if err != nil {
		return domain.Chemical{}, fmt.Errorf("lookup chemical %q: %w", name, err)
	}
	return chem, nil
}

func scanChemical(row pgx.Row) (domain.Chemical, error) {
	var chem domain.Chemical
	var thresholdsRaw []byte
	if err := row.Scan(&chem.Name, &chem.MolecularWeight, &thresholdsRaw); err != nil {
		return domain.Chemical{}, err
	}
	if len(thresholdsRaw) > 0 {
		if err := json.Unmarshal(thresholdsRaw, &chem.Thresholds); err != nil {
			return domain.Chemical{}, fmt.Errorf("decode thresholds: %w", err)
		}
	}
	return chem, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EnsureSchema creates the chemicals table and seeds common industrial
// chemicals. Existing rows are left untouched.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS chemicals (
            name TEXT PRIMARY KEY,
            molecular_weight DOUBLE PRECISION NOT NULL CHECK (molecular_weight > 0),
            thresholds JSONB NOT NULL DEFAULT '{}'::jsonb,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`
	if _, err := c.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create chemicals table: %w", err)
	}
	return c.seed(ctx)
}

// Seeds are one-hour AEGL, ERPG and IDLH values in ppm.
var seeds = []domain.Chemical{
	{Name: "ammonia", MolecularWeight: 17.03, Thresholds: map[string]string{
		"AEGL-1": "30 ppm", "AEGL-2": "160 ppm", "AEGL-3": "1100 ppm",
		"ERPG-1": "25 ppm", "ERPG-2": "150 ppm", "ERPG-3": "1500 ppm",
		"IDLH": "300 ppm",
	}},
	{Name: "chlorine", MolecularWeight: 70.90, Thresholds: map[string]string{
		"AEGL-1": "0.5 ppm", "AEGL-2": "2 ppm", "AEGL-3": "20 ppm",
		"ERPG-1": "1 ppm", "ERPG-2": "3 ppm", "ERPG-3": "20 ppm",
		"IDLH": "10 ppm",
	}},
	{Name: "hydrogen sulfide", MolecularWeight: 34.08, Thresholds: map[string]string{
		"AEGL-1": "0.51 ppm", "AEGL-2": "27 ppm", "AEGL-3": "50 ppm",
		"ERPG-1": "0.1 ppm", "ERPG-2": "30 ppm", "ERPG-3": "100 ppm",
		"IDLH": "100 ppm",
	}},
	{Name: "sulfur dioxide", MolecularWeight: 64.07, Thresholds: map[string]string{
		"AEGL-1": "0.2 ppm", "AEGL-2": "0.75 ppm", "AEGL-3": "30 ppm",
		"ERPG-1": "0.3 ppm", "ERPG-2": "3 ppm", "ERPG-3": "15 ppm",
		"IDLH": "100 ppm",
	}},
	{Name: "phosgene", MolecularWeight: 98.92, Thresholds: map[string]string{
		"AEGL-2": "0.3 ppm", "AEGL-3": "0.75 ppm",
		"ERPG-2": "0.5 ppm", "ERPG-3": "1.5 ppm",
		"IDLH": "2 ppm",
	}},
}

func (c *Catalog) seed(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, chem := range seeds {
		thresholds, err := json.Marshal(chem.Thresholds)
		if err != nil {
			return fmt.Errorf("encode %s thresholds: %w", chem.Name, err)
		}
		batch.Queue(`INSERT INTO chemicals (name, molecular_weight, thresholds) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			chem.Name, chem.MolecularWeight, thresholds)
	}

	br := c.db.SendBatch(ctx, batch)
	defer br.Close()
	for _, chem := range seeds {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed %s: %w", chem.Name, err)
		}
	}
	return nil
}
