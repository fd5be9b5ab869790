package fulfillment

import (
	"errors"
	"fmt"
	"time"

	"github.com/tavola-pos/tavola/internal/orders"
)

// Bucket is one of the four per-line fulfillment counters.
type Bucket string

const (
	BucketPending   Bucket = "pending"
	BucketPreparing Bucket = "preparing"
	BucketDelivered Bucket = "delivered"
	BucketVoided    Bucket = "voided"
)

// Errors returned by the engine. InvalidTarget and InvalidCount reject the
// request before any store access; InsufficientStock is a business rejection
// carrying the checked source buckets for client diagnostics.
var (
	ErrInvalidTarget      = errors.New("invalid target bucket")
	ErrInvalidCount       = errors.New("count must be a positive integer")
	ErrInsufficientStock  = errors.New("no units available in any source bucket")
	ErrLineNotFound       = errors.New("order line not found")
	ErrAuditLineImmutable = errors.New("audit lines do not accept transitions")
)

// SourceState snapshots one source bucket at rejection time.
type SourceState struct {
	Bucket Bucket `json:"bucket"`
	Units  int64  `json:"units"`
}

// InsufficientStockError reports a move that could not shift a single unit.
type InsufficientStockError struct {
	LineID    int64
	Target    Bucket
	Requested int64
	Sources   []SourceState
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("line %d: cannot move %d unit(s) to %s: %s", e.LineID, e.Requested, e.Target, e.sourceSummary())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func (e *InsufficientStockError) sourceSummary() string {
	s := "checked"
	for _, src := range e.Sources {
		s += fmt.Sprintf(" %s=%d", src.Bucket, src.Units)
	}
	return s
}

// Counters is the per-line bucket record. The four buckets always sum to the
// line's original quantity; Original is fixed at seeding and never changes.
type Counters struct {
	LineID    int64     `json:"line_id" db:"line_id"`
	Pending   int64     `json:"pending" db:"pending"`
	Preparing int64     `json:"preparing" db:"preparing"`
	Delivered int64     `json:"delivered" db:"delivered"`
	Voided    int64     `json:"voided" db:"voided"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Original is the line's ordered quantity, implied by the invariant.
func (c Counters) Original() int64 {
	return c.Pending + c.Preparing + c.Delivered + c.Voided
}

// Resolved reports whether every unit has been delivered or voided.
func (c Counters) Resolved() bool {
	return c.Delivered+c.Voided >= c.Original()
}

// FinalizeIfDone zeroes the in-flight buckets once every unit has been
// delivered or voided, and reports whether the line is resolved. Calling it
// on an already resolved line changes nothing.
func (c *Counters) FinalizeIfDone() bool {
	if !c.Resolved() {
		return false
	}
	c.Pending = 0
	c.Preparing = 0
	return true
}

func (c Counters) get(b Bucket) int64 {
	switch b {
	case BucketPending:
		return c.Pending
	case BucketPreparing:
		return c.Preparing
	case BucketDelivered:
		return c.Delivered
	case BucketVoided:
		return c.Voided
	}
	return 0
}

func (c *Counters) add(b Bucket, delta int64) {
	switch b {
	case BucketPending:
		c.Pending += delta
	case BucketPreparing:
		c.Preparing += delta
	case BucketDelivered:
		c.Delivered += delta
	case BucketVoided:
		c.Voided += delta
	}
}

// moveSources lists, per target, the buckets drained in order. The second
// entry of the preparing list lets a mistakenly delivered item go back to the
// kitchen; voiding drains delivered last so post-serve corrections work.
var moveSources = map[Bucket][]Bucket{
	BucketPreparing: {BucketPending, BucketDelivered},
	BucketDelivered: {BucketPreparing, BucketPending},
	BucketVoided:    {BucketPending, BucketPreparing, BucketDelivered},
	BucketPending:   {BucketDelivered, BucketPreparing},
}

// ParseBucket validates a raw target name.
func ParseBucket(raw string) (Bucket, error) {
	b := Bucket(raw)
	if _, ok := moveSources[b]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}
	return b, nil
}

// ProjectStatus collapses the buckets into the legacy single-value label:
// the highest-priority non-zero bucket wins (voided > delivered > preparing
// > pending).
func ProjectStatus(c Counters) orders.LineStatus {
	switch {
	case c.Voided > 0:
		return orders.LineStatusVoided
	case c.Delivered > 0:
		return orders.LineStatusDelivered
	case c.Preparing > 0:
		return orders.LineStatusInPreparation
	default:
		return orders.LineStatusNew
	}
}

// seedBucket maps a line's current legacy label to the bucket that receives
// its entire quantity at seeding time.
func seedBucket(status string) Bucket {
	switch orders.NormalizeStatus(status) {
	case orders.LineStatusDelivered:
		return BucketDelivered
	case orders.LineStatusInPreparation:
		return BucketPreparing
	case orders.LineStatusVoided:
		return BucketVoided
	default:
		return BucketPending
	}
}
