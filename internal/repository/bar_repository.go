package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

type BarRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBarRepository(pool PgxPool, tracer trace.Tracer) *BarRepository {
	return &BarRepository{pool: pool, tracer: tracer}
}

// UpsertBars writes bars for code, replacing any bar already stored for the
// same date.
func (r *BarRepository) UpsertBars(ctx context.Context, code string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "bar-repo.upsert-bars",
		trace.WithAttributes(attribute.String("code", code), attribute.Int("bars", len(bars))))
	defer span.End()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO bars (code, date, open, high, low, close, volume, foreign_net, institution_net)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (code, date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume,
			     foreign_net = EXCLUDED.foreign_net,
			     institution_net = EXCLUDED.institution_net`,
			code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.ForeignNet, b.InstitutionNet,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, b := range bars {
		if _, err := br.Exec(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("upsert bar %s %s: %w", code, b.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// GetSeries returns the most recent lookback bars for code in ascending date
// order. An unknown code yields an empty series.
func (r *BarRepository) GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error) {
	ctx, span := r.tracer.Start(ctx, "bar-repo.get-series",
		trace.WithAttributes(attribute.String("code", code), attribute.Int("lookback", lookback)))
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date, open, high, low, close, volume, foreign_net, institution_net
		 FROM bars
		 WHERE code = $1
		 ORDER BY date DESC
		 LIMIT $2`,
		code, lookback,
	)
	if err != nil {
		return domain.Series{}, fmt.Errorf("query bars %s: %w", code, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.ForeignNet, &b.InstitutionNet); err != nil {
			return domain.Series{}, fmt.Errorf("scan bar %s: %w", code, err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return domain.Series{}, err
	}
	reverse(bars)
	return domain.Series{Code: code, Bars: bars}, nil
}

// Codes lists every instrument with stored bars.
func (r *BarRepository) Codes(ctx context.Context) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "bar-repo.codes")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT DISTINCT code FROM bars ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
