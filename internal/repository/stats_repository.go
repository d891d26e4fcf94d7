package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

// StatsRepository stores pattern statistics and instrument profiles. Each
// update runs in its own transaction with the affected rows locked.
type StatsRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewStatsRepository(pool PgxPool, tracer trace.Tracer) *StatsRepository {
	return &StatsRepository{pool: pool, tracer: tracer}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadPatterns(ctx context.Context, q querier, lock bool) (map[string]domain.PatternStat, error) {
	sql := `SELECT name, count, wins, total_return FROM pattern_stats`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.PatternStat{}
	for rows.Next() {
		var st domain.PatternStat
		if err := rows.Scan(&st.Name, &st.Count, &st.Wins, &st.TotalReturn); err != nil {
			return nil, err
		}
		out[st.Name] = st
	}
	return out, rows.Err()
}

func (r *StatsRepository) Patterns(ctx context.Context) (map[string]domain.PatternStat, error) {
	ctx, span := r.tracer.Start(ctx, "stats-repo.patterns")
	defer span.End()

	out, err := loadPatterns(ctx, r.pool, false)
	if err != nil {
		return nil, fmt.Errorf("load pattern stats: %w", err)
	}
	return out, nil
}

func (r *StatsRepository) UpdatePatterns(ctx context.Context, fn func(map[string]domain.PatternStat)) error {
	ctx, span := r.tracer.Start(ctx, "stats-repo.update-patterns")
	defer span.End()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		stats, err := loadPatterns(ctx, tx, true)
		if err != nil {
			return err
		}
		fn(stats)

		batch := &pgx.Batch{}
		for name, st := range stats {
			batch.Queue(
				`INSERT INTO pattern_stats (name, count, wins, total_return)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (name) DO UPDATE SET
				     count = EXCLUDED.count,
				     wins = EXCLUDED.wins,
				     total_return = EXCLUDED.total_return`,
				name, st.Count, st.Wins, st.TotalReturn,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("update pattern stats: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadProfile(ctx context.Context, q rowQuerier, code string, lock bool) (*domain.InstrumentProfile, error) {
	sql := `SELECT code, count, wins, total_return, max_profit, max_loss, avg_volatility, styles
	        FROM instrument_profiles WHERE code = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var p domain.InstrumentProfile
	var styles []byte
	err := q.QueryRow(ctx, sql, code).Scan(&p.Code, &p.Count, &p.Wins, &p.TotalReturn,
		&p.MaxProfit, &p.MaxLoss, &p.AvgVolatility, &styles)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Styles = map[domain.Style]domain.StyleStat{}
	if len(styles) > 0 {
		if err := json.Unmarshal(styles, &p.Styles); err != nil {
			return nil, fmt.Errorf("decode styles for %s: %w", code, err)
		}
	}
	return &p, nil
}

func (r *StatsRepository) Profile(ctx context.Context, code string) (*domain.InstrumentProfile, error) {
	ctx, span := r.tracer.Start(ctx, "stats-repo.profile")
	defer span.End()

	p, err := loadProfile(ctx, r.pool, code, false)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", code, err)
	}
	return p, nil
}

func (r *StatsRepository) UpdateProfile(ctx context.Context, code string, fn func(*domain.InstrumentProfile)) error {
	ctx, span := r.tracer.Start(ctx, "stats-repo.update-profile")
	defer span.End()

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		p, err := loadProfile(ctx, tx, code, true)
		if err != nil {
			return err
		}
		if p == nil {
			fresh := domain.NewInstrumentProfile(code)
			p = &fresh
		}
		fn(p)

		styles, err := json.Marshal(p.Styles)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO instrument_profiles (code, count, wins, total_return, max_profit, max_loss, avg_volatility, styles)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (code) DO UPDATE SET
			     count = EXCLUDED.count,
			     wins = EXCLUDED.wins,
			     total_return = EXCLUDED.total_return,
			     max_profit = EXCLUDED.max_profit,
			     max_loss = EXCLUDED.max_loss,
			     avg_volatility = EXCLUDED.avg_volatility,
			     styles = EXCLUDED.styles`,
			code, p.Count, p.Wins, p.TotalReturn, p.MaxProfit, p.MaxLoss, p.AvgVolatility, styles,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update profile %s: %w", code, err)
	}
	return nil
}
