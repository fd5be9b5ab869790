package orders

import (
	"strings"

	"golang.org/x/text/width"
)

// LineStatus is a canonical single-value status label. The four fulfillment
// buckets are ground truth; the stored label is a cached projection kept for
// read paths that are not bucket-aware. Lines carry the label as free text
// because old registers wrote localized synonyms; helpers below translate at
// the storage boundary, never inside the state machine.
type LineStatus string

const (
	LineStatusNew           LineStatus = "new"
	LineStatusInPreparation LineStatus = "in-preparation"
	LineStatusDelivered     LineStatus = "delivered"
	LineStatusVoided        LineStatus = "voided"
)

// statusAliases maps every historical label the registers have written to
// its canonical status.
var statusAliases = map[string]LineStatus{
	"new":            LineStatusNew,
	"pending":        LineStatusNew,
	"ordered":        LineStatusNew,
	"新規":             LineStatusNew,
	"未提供":            LineStatusNew,
	"in-preparation": LineStatusInPreparation,
	"in preparation": LineStatusInPreparation,
	"preparing":      LineStatusInPreparation,
	"cooking":        LineStatusInPreparation,
	"調理中":            LineStatusInPreparation,
	"delivered":      LineStatusDelivered,
	"served":         LineStatusDelivered,
	"提供済":            LineStatusDelivered,
	"提供済み":           LineStatusDelivered,
	"voided":         LineStatusVoided,
	"void":           LineStatusVoided,
	"cancelled":      LineStatusVoided,
	"canceled":       LineStatusVoided,
	"cancel":         LineStatusVoided,
	"取消":             LineStatusVoided,
	"キャンセル":          LineStatusVoided,
}

// cancelWords is the label set the recalculator treats as a label-only
// cancellation. Old registers cancelled a line by overwriting its label with
// one of these words, without a compensating audit line, so the recalculator
// must drop the whole line. The canonical "voided" is deliberately absent:
// that label is written only by the status projector for bucket-tracked
// lines, whose cancellations are already accounted for by negative audit
// lines. Including it would subtract those lines twice.
var cancelWords = map[string]struct{}{
	"void":      {},
	"cancelled": {},
	"canceled":  {},
	"cancel":    {},
	"取消":        {},
	"キャンセル":     {},
}

func foldLabel(raw string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(raw)))
}

// NormalizeStatus maps a raw stored label to its canonical status. Unknown
// labels normalize to "new" so an unseeded line starts in the pending bucket.
func NormalizeStatus(raw string) LineStatus {
	if s, ok := statusAliases[foldLabel(raw)]; ok {
		return s
	}
	return LineStatusNew
}

// IsCancelWord reports whether a raw label belongs to the cancellation-word
// set used by the recalculator.
func IsCancelWord(raw string) bool {
	_, ok := cancelWords[foldLabel(raw)]
	return ok
}
