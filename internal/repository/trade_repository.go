package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

const tradeColumns = `id, code, entry_price, entry_time, exit_price, exit_time, return_pct, style, reason, score, quantity, patterns`

// TradeRepository is the append-only trade ledger.
type TradeRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer}
}

func (r *TradeRepository) Append(ctx context.Context, t domain.TradeRecord) error {
	ctx, span := r.tracer.Start(ctx, "trade-repo.append")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO trades (`+tradeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Code, t.EntryPrice, t.EntryTime, t.ExitPrice, t.ExitTime, t.ReturnPct,
		string(t.Style), string(t.Reason), t.Score, t.Quantity, nonNil(t.Patterns),
	)
	if err != nil {
		return fmt.Errorf("append trade %s: %w", t.ID, err)
	}
	return nil
}

func (r *TradeRepository) List(ctx context.Context) ([]domain.TradeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "trade-repo.list")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+tradeColumns+` FROM trades ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return collectTrades(rows)
}

func (r *TradeRepository) ListByCode(ctx context.Context, code string) ([]domain.TradeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "trade-repo.list-by-code")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+tradeColumns+` FROM trades WHERE code = $1 ORDER BY seq`, code)
	if err != nil {
		return nil, fmt.Errorf("list trades %s: %w", code, err)
	}
	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]domain.TradeRecord, error) {
	defer rows.Close()
	out := []domain.TradeRecord{}
	for rows.Next() {
		var t domain.TradeRecord
		var style, reason string
		if err := rows.Scan(&t.ID, &t.Code, &t.EntryPrice, &t.EntryTime, &t.ExitPrice, &t.ExitTime,
			&t.ReturnPct, &style, &reason, &t.Score, &t.Quantity, &t.Patterns); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Style, t.Reason = domain.Style(style), domain.CloseReason(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}
