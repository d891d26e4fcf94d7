package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

const positionColumns = `code, entry_price, entry_time, style, stop_loss, target_1, target_2, quantity, score, patterns, status`

type PositionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPositionRepository(pool PgxPool, tracer trace.Tracer) *PositionRepository {
	return &PositionRepository{pool: pool, tracer: tracer}
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var style string
	err := row.Scan(&p.Code, &p.EntryPrice, &p.EntryTime, &style, &p.StopLoss, &p.Target1,
		&p.Target2, &p.Quantity, &p.Score, &p.Patterns, &p.Status)
	p.Style = domain.Style(style)
	return p, err
}

func (r *PositionRepository) Get(ctx context.Context, code string) (domain.Position, bool, error) {
	ctx, span := r.tracer.Start(ctx, "position-repo.get")
	defer span.End()

	p, err := scanPosition(r.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("get position %s: %w", code, err)
	}
	return p, true, nil
}

func (r *PositionRepository) Save(ctx context.Context, p domain.Position) error {
	ctx, span := r.tracer.Start(ctx, "position-repo.save")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO positions (`+positionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (code) DO UPDATE SET
		     entry_price = EXCLUDED.entry_price,
		     entry_time = EXCLUDED.entry_time,
		     style = EXCLUDED.style,
		     stop_loss = EXCLUDED.stop_loss,
		     target_1 = EXCLUDED.target_1,
		     target_2 = EXCLUDED.target_2,
		     quantity = EXCLUDED.quantity,
		     score = EXCLUDED.score,
		     patterns = EXCLUDED.patterns,
		     status = EXCLUDED.status`,
		p.Code, p.EntryPrice, p.EntryTime, string(p.Style), p.StopLoss, p.Target1,
		p.Target2, p.Quantity, p.Score, nonNil(p.Patterns), p.Status,
	)
	if err != nil {
		return fmt.Errorf("save position %s: %w", p.Code, err)
	}
	return nil
}

func (r *PositionRepository) Delete(ctx context.Context, code string) error {
	ctx, span := r.tracer.Start(ctx, "position-repo.delete")
	defer span.End()

	if _, err := r.pool.Exec(ctx, `DELETE FROM positions WHERE code = $1`, code); err != nil {
		return fmt.Errorf("delete position %s: %w", code, err)
	}
	return nil
}

func (r *PositionRepository) List(ctx context.Context) ([]domain.Position, error) {
	ctx, span := r.tracer.Start(ctx, "position-repo.list")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	out := []domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
