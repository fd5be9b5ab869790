package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-pos/tavola/internal/observability"
	"github.com/tavola-pos/tavola/internal/orders"
	"github.com/tavola-pos/tavola/internal/shared"
)

// Store is the persistence surface the service needs. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCounters(ctx context.Context, lineID int64) (*Counters, error)
}

// ActionRecorder persists the operator action trail. The financial record of
// a void is the negative line; this is the who-did-what log.
type ActionRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs bucket moves. Every move executes inside one transaction:
// seed if needed, shift units, refresh the projected label, append the void
// audit line, finalize resolved lines, and recompute the order totals. The
// row lock on the counters record serializes concurrent moves per line.
type Service struct {
	store       Store
	audit       ActionRecorder
	defaultRate decimal.Decimal
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewService constructs the fulfillment service. defaultRate is the process
// wide tax rate applied when neither the line nor its product carries one.
// audit may be nil.
func NewService(store Store, audit ActionRecorder, defaultRate decimal.Decimal, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, audit: audit, defaultRate: defaultRate, metrics: metrics, logger: logger}
}

// MoveRequest is one transition command for one line.
type MoveRequest struct {
	LineID   int64
	Target   string
	Count    int64
	Memo     *string
	Operator *int64
}

// MoveOutcome reports what a move did.
type MoveOutcome struct {
	LineID      int64         `json:"line_id"`
	Target      Bucket        `json:"target"`
	Requested   int64         `json:"requested"`
	Moved       int64         `json:"moved"`
	Partial     bool          `json:"partial"`
	Drained     []SourceState `json:"drained"`
	Counters    Counters      `json:"counters"`
	Status      string        `json:"status"`
	Finalized   bool          `json:"finalized"`
	AuditLineID *int64        `json:"audit_line_id,omitempty"`
	Totals      orders.Totals `json:"totals"`
}

// Move shifts up to req.Count units of the line into the target bucket.
func (s *Service) Move(ctx context.Context, req MoveRequest) (*MoveOutcome, error) {
	target, err := ParseBucket(req.Target)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, req.Count)
	}

	var out *MoveOutcome
	err = s.store.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		line, err := repo.GetLine(ctx, req.LineID)
		if err != nil {
			return err
		}
		if line.IsAudit() {
			return ErrAuditLineImmutable
		}

		counters, err := s.lockCounters(ctx, repo, line)
		if err != nil {
			return err
		}

		res, err := applyMove(counters, target, req.Count)
		if err != nil {
			return err
		}
		finalized := counters.FinalizeIfDone()
		if err := repo.UpdateCounters(ctx, *counters); err != nil {
			return err
		}

		status := ProjectStatus(*counters)
		if finalized {
			// A resolved line reads as delivered even when part of it was
			// voided; the negative audit lines carry the cancellation.
			status = orders.LineStatusDelivered
		}
		if orders.NormalizeStatus(line.Status) != status {
			if err := repo.UpdateLineStatus(ctx, line.ID, status); err != nil {
				return err
			}
		}

		var auditID *int64
		if target == BucketVoided {
			id, err := s.appendVoidAudit(ctx, repo, line, res.Moved, req)
			if err != nil {
				return err
			}
			auditID = &id
		}

		totals, err := s.recalc(ctx, repo, line.OrderID)
		if err != nil {
			return err
		}

		out = &MoveOutcome{
			LineID:    line.ID,
			Target:    target,
			Requested: req.Count,
			Moved:     res.Moved,
			Partial:   res.Moved < req.Count,
			Drained:   res.Drained,
			Counters:  *counters,
			Status:    string(status),
			Finalized: finalized,
			Totals:    totals,
		}
		out.AuditLineID = auditID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMove(string(target), int(out.Moved))
	s.recordAction(ctx, req, out)
	s.logger.InfoContext(ctx, "bucket move applied",
		"line_id", out.LineID,
		"target", out.Target,
		"requested", out.Requested,
		"moved", out.Moved,
		"partial", out.Partial,
		"finalized", out.Finalized,
	)
	return out, nil
}

func (s *Service) recordAction(ctx context.Context, req MoveRequest, out *MoveOutcome) {
	if s.audit == nil {
		return
	}
	var actor int64
	if req.Operator != nil {
		actor = *req.Operator
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   "fulfillment.move." + string(out.Target),
		Entity:   "order_line",
		EntityID: fmt.Sprintf("%d", out.LineID),
		Meta: map[string]any{
			"requested": out.Requested,
			"moved":     out.Moved,
			"status":    out.Status,
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Warn("record move action", slog.Any("error", err))
	}
}

// lockCounters takes the row lock, seeding the counters first when the line
// has never been tracked. Seeding puts the full quantity into the bucket the
// stored label implies, so legacy lines join the engine mid-flight.
func (s *Service) lockCounters(ctx context.Context, repo TxRepository, line *orders.Line) (*Counters, error) {
	counters, err := repo.GetCountersForUpdate(ctx, line.ID)
	if err == nil {
		if counters.Original() > 0 {
			return counters, nil
		}
		// An all-zero record carries no units; re-seed it from the label.
		reseeded := *counters
		reseeded.add(seedBucket(line.Status), line.Quantity)
		if err := repo.UpdateCounters(ctx, reseeded); err != nil {
			return nil, err
		}
		return &reseeded, nil
	}
	if !errors.Is(err, ErrCountersNotFound) {
		return nil, err
	}

	seed := Counters{LineID: line.ID}
	seed.add(seedBucket(line.Status), line.Quantity)
	if err := repo.InsertCounters(ctx, seed); err != nil {
		return nil, err
	}
	// Re-read under lock: a concurrent seeder may have won the insert.
	return repo.GetCountersForUpdate(ctx, line.ID)
}

// appendVoidAudit writes the negative compensation line for a void move.
func (s *Service) appendVoidAudit(ctx context.Context, repo TxRepository, line *orders.Line, moved int64, req MoveRequest) (int64, error) {
	rate, err := s.resolveTaxRate(ctx, repo, line)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	audit := orders.Line{
		OrderID:          line.OrderID,
		ProductID:        line.ProductID,
		Quantity:         -moved,
		UnitPrice:        line.UnitPrice,
		UnitPriceInclTax: line.UnitPriceInclTax,
		TaxRate:          &rate,
		Status:           string(orders.LineStatusVoided),
		Memo:             req.Memo,
		ParentLineID:     &line.ID,
		SalesDate:        &now,
	}
	return repo.InsertAuditLine(ctx, audit)
}

// resolveTaxRate picks the rate recorded on the audit line. Order of
// preference: the line's own rate, the product's current rate, a rate
// inferred from the captured tax-inclusive price, the process default.
func (s *Service) resolveTaxRate(ctx context.Context, repo TxRepository, line *orders.Line) (decimal.Decimal, error) {
	if line.TaxRate != nil {
		return *line.TaxRate, nil
	}
	productRate, err := repo.GetProductTaxRate(ctx, line.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	if productRate != nil {
		return *productRate, nil
	}
	if line.UnitPriceInclTax != nil && line.UnitPrice > 0 && *line.UnitPriceInclTax > line.UnitPrice {
		diff := decimal.NewFromInt(*line.UnitPriceInclTax - line.UnitPrice)
		return diff.Div(decimal.NewFromInt(line.UnitPrice)).Round(4), nil
	}
	return s.defaultRate, nil
}

// recalc recomputes and stores the order totals from its current lines.
func (s *Service) recalc(ctx context.Context, repo TxRepository, orderID int64) (orders.Totals, error) {
	lines, err := repo.GetOrderLines(ctx, orderID)
	if err != nil {
		return orders.Totals{}, err
	}
	totals := orders.ComputeTotals(lines, s.defaultRate)
	if err := repo.UpdateOrderTotals(ctx, orderID, totals); err != nil {
		return orders.Totals{}, err
	}
	return totals, nil
}

// Counters reads a line's bucket record. A line that was never seeded
// reports all zeros; reading never creates the record.
func (s *Service) Counters(ctx context.Context, lineID int64) (*Counters, error) {
	c, err := s.store.GetCounters(ctx, lineID)
	if errors.Is(err, ErrCountersNotFound) {
		return &Counters{LineID: lineID}, nil
	}
	return c, err
}

// Recalc recomputes an order's totals outside of any move, for the nightly
// integrity sweep and manual repair.
func (s *Service) Recalc(ctx context.Context, orderID int64) (orders.Totals, error) {
	var totals orders.Totals
	err := s.store.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		var err error
		totals, err = s.recalc(ctx, repo, orderID)
		return err
	})
	return totals, err
}
