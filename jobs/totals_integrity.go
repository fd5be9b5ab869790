package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tavola-pos/tavola/internal/jobs"
	"github.com/tavola-pos/tavola/internal/orders"
)

// TotalsRecalculator repairs one order's cached totals. Implemented by the
// fulfillment service.
type TotalsRecalculator interface {
	Recalc(ctx context.Context, orderID int64) (orders.Totals, error)
}

// TotalsIntegrityJob sweeps orders whose cached totals may have drifted from
// their lines (crashed requests, manual database edits) and rewrites them.
type TotalsIntegrityJob struct {
	pool    *pgxpool.Pool
	recalc  TotalsRecalculator
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewTotalsIntegrityJob constructs the sweep job. metrics may be nil.
func NewTotalsIntegrityJob(pool *pgxpool.Pool, recalc TotalsRecalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) *TotalsIntegrityJob {
	return &TotalsIntegrityJob{pool: pool, recalc: recalc, logger: logger, metrics: metrics}
}

// Handle processes TaskTotalsIntegrity tasks.
func (j *TotalsIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("totals_integrity")
	return tracker.End(j.run(ctx, t))
}

func (j *TotalsIntegrityJob) run(ctx context.Context, t *asynq.Task) error {
	var payload TotalsIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	query := `SELECT id, subtotal, tax_amount, total_amount FROM orders WHERE status = 'OPEN'`
	if payload.Scope == ScopeToday {
		query = `SELECT id, subtotal, tax_amount, total_amount FROM orders WHERE created_at::date = CURRENT_DATE`
	}

	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	type stored struct {
		id     int64
		totals orders.Totals
	}
	var candidates []stored
	for rows.Next() {
		var s stored
		if err := rows.Scan(&s.id, &s.totals.Subtotal, &s.totals.TaxAmount, &s.totals.Total); err != nil {
			rows.Close()
			return err
		}
		candidates = append(candidates, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var drifted int
	for _, c := range candidates {
		recomputed, err := j.recalc.Recalc(ctx, c.id)
		if err != nil {
			j.logger.Warn("totals sweep recalc", slog.Int64("order_id", c.id), slog.Any("error", err))
			continue
		}
		if recomputed != c.totals {
			drifted++
			j.logger.Warn("totals drift repaired",
				slog.Int64("order_id", c.id),
				slog.Int64("stored_total", c.totals.Total),
				slog.Int64("recomputed_total", recomputed.Total),
			)
		}
	}

	j.metrics.AddDrift(drifted)
	j.logger.Info("totals integrity sweep finished",
		slog.String("scope", payload.Scope),
		slog.Int("checked", len(candidates)),
		slog.Int("drifted", drifted),
	)
	return nil
}
