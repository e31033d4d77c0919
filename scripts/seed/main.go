package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgercast/ledgercast/internal/forecast"
	"github.com/ledgercast/ledgercast/internal/shared"
)

// Seeds the staging tables with a deterministic synthetic dataset and writes
// the same tables as CSV files for offline experimentation.
func main() {
	ctx := context.Background()

	start, err := shared.ParsePeriod(getenv("SEED_START", "2025-01"))
	if err != nil {
		log.Fatalf("parse SEED_START: %v", err)
	}
	spec := forecast.SynthSpec{
		Start:    start,
		Months:   getenvInt("SEED_MONTHS", 12),
		Projects: getenvInt("SEED_PROJECTS", 4),
		Seed:     int64(getenvInt("SEED_RANDOM", 42)),
	}
	raw := forecast.GenerateDataset(spec)

	outDir := getenv("SEED_OUT_DIR", "testdata/seed")
	if err := writeCSVs(outDir, raw); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	fmt.Printf("→ Wrote CSV tables to %s\n", outDir)

	dsn := getenv("PG_DSN", "")
	if dsn == "" {
		fmt.Println("→ PG_DSN not set, skipping database load")
		return
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := ensureSchema(ctx, pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	repo := forecast.NewRepository(pool)
	for _, name := range forecast.ImportTableNames() {
		table, ok := raw.TableByName(name)
		if !ok {
			continue
		}
		n, warnings, err := repo.ReplaceTable(ctx, *table)
		if err != nil {
			log.Fatalf("load %s: %v", name, err)
		}
		fmt.Printf("→ Loaded %s (%d rows, %d warnings)\n", name, n, len(warnings))
	}

	if err := seedPoolGroups(ctx, pool); err != nil {
		log.Fatalf("seed pool groups: %v", err)
	}
	fmt.Println("→ Seeded pool groups")
}

func writeCSVs(dir string, raw forecast.RawInputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range forecast.ImportTableNames() {
		table, ok := raw.TableByName(name)
		if !ok {
			continue
		}
		f, err := os.Create(filepath.Join(dir, name+".csv"))
		if err != nil {
			return err
		}
		if err := forecast.WriteTable(f, *table); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gl_actuals (
			id BIGSERIAL PRIMARY KEY,
			period TEXT NOT NULL,
			account TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			entity TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS account_map (
			account TEXT PRIMARY KEY,
			pool TEXT NOT NULL,
			base_category TEXT,
			is_unallowable BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS direct_costs_by_project (
			id BIGSERIAL PRIMARY KEY,
			period TEXT NOT NULL,
			project TEXT NOT NULL,
			labor DOUBLE PRECISION NOT NULL DEFAULT 0,
			labor_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			subcontract DOUBLE PRECISION NOT NULL DEFAULT 0,
			odc DOUBLE PRECISION NOT NULL DEFAULT 0,
			travel DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS scenario_events (
			id BIGSERIAL PRIMARY KEY,
			scenario TEXT NOT NULL,
			event_type TEXT,
			project TEXT,
			effective_period TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			notes TEXT,
			source_row INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pool_groups (
			name TEXT PRIMARY KEY,
			base_category TEXT NOT NULL,
			cascade_order INTEGER NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id UUID PRIMARY KEY,
			scenario TEXT NOT NULL,
			params JSONB NOT NULL,
			warnings INTEGER NOT NULL,
			periods INTEGER NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			assumptions JSONB NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func seedPoolGroups(ctx context.Context, pool *pgxpool.Pool) error {
	for _, group := range forecast.DefaultPoolGroups() {
		_, err := pool.Exec(ctx, `INSERT INTO pool_groups (name, base_category, cascade_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET base_category = $2, cascade_order = $3`,
			group.Name, string(group.Base), group.CascadeOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("parse %s: %v", key, err)
	}
	return value
}
