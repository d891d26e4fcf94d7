// Command migrate applies the embedded schema migrations to DATABASE_URL.
//
//	migrate up
//	migrate down [steps]
//	migrate version
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"signalfuse/pkg/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

var migrationName = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// db is the part of *pgxpool.Pool the runner needs.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

func main() {
	_ = loadEnvFunc()
	logging.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: migrate [up|down|version] [steps]")
	}
	dsn := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	if err := run(ctx, pool, os.Args[1:]); err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("migrate failed")
	}
}

func run(ctx context.Context, conn db, args []string) error {
	if err := ensureMigrationTable(ctx, conn); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	switch args[0] {
	case "up":
		n, err := applyUp(ctx, conn, migrations)
		if err != nil {
			return err
		}
		log.Info().Int("applied", n).Msg("migrations up complete")
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				return fmt.Errorf("invalid down steps %q", args[1])
			}
		}
		n, err := applyDown(ctx, conn, migrations, steps)
		if err != nil {
			return err
		}
		log.Info().Int("rolled_back", n).Msg("migrations down complete")
	case "version":
		version, name, err := currentVersion(ctx, conn)
		if err != nil {
			return err
		}
		log.Info().Int64("version", version).Str("name", name).Msg("current schema version")
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func ensureMigrationTable(ctx context.Context, conn db) error {
	_, err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

// loadMigrations pairs NNNN_name.up.sql with NNNN_name.down.sql and returns
// them in version order.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*migration)
	for _, p := range paths {
		m := migrationName.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		sql := strings.TrimSpace(string(body))
		if sql == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		mig, ok := index[version]
		if !ok {
			mig = &migration{Version: version, Name: m[2]}
			index[version] = mig
		} else if mig.Name != m[2] {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, mig.Name, m[2])
		}
		target := &mig.UpSQL
		if m[3] == "down" {
			target = &mig.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", m[3], version)
		}
		*target = sql
	}

	out := make([]migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d needs both up and down files", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func appliedVersions(ctx context.Context, conn db, limit int) ([]int64, error) {
	sql := `SELECT version FROM schema_migrations ORDER BY version DESC`
	args := []any{}
	if limit > 0 {
		sql += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func applyUp(ctx context.Context, conn db, migrations []migration) (int, error) {
	versions, err := appliedVersions(ctx, conn, 0)
	if err != nil {
		return 0, err
	}
	done := make(map[int64]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}

	applied := 0
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("version %d up: %w", m.Version, err)
		}
		log.Info().Int64("version", m.Version).Str("name", m.Name).Msg("applied")
		applied++
	}
	return applied, nil
}

func applyDown(ctx context.Context, conn db, migrations []migration, steps int) (int, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	versions, err := appliedVersions(ctx, conn, steps)
	if err != nil {
		return 0, err
	}

	rolledBack := 0
	for _, v := range versions {
		m, ok := byVersion[v]
		if !ok {
			return rolledBack, fmt.Errorf("no source for applied version %d", v)
		}
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.DownSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
			return err
		})
		if err != nil {
			return rolledBack, fmt.Errorf("version %d down: %w", m.Version, err)
		}
		log.Info().Int64("version", m.Version).Str("name", m.Name).Msg("rolled back")
		rolledBack++
	}
	return rolledBack, nil
}

func currentVersion(ctx context.Context, conn db) (int64, string, error) {
	var version int64
	var name string
	err := conn.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	return version, name, err
}
