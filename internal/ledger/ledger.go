// Package ledger records one row per notified lead across one or more
// append-only sinks.
package ledger

import (
	"context"
	"errors"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// Ledger appends audit rows. Appends are at-least-once: a retried
// append after a transient failure may duplicate a row, which is
// acceptable because dedupe truth lives in the seen-set, not here.
type Ledger interface {
	Append(ctx context.Context, row model.LedgerRow) error
}

// RowStore is the local persistence needed by the primary sink.
type RowStore interface {
	AppendLedgerRow(ctx context.Context, row model.LedgerRow) error
}

// StoreLedger writes rows to the local database.
type StoreLedger struct {
	store RowStore
}

// NewStoreLedger creates the primary, database-backed sink.
func NewStoreLedger(store RowStore) *StoreLedger {
	return &StoreLedger{store: store}
}

func (l *StoreLedger) Append(ctx context.Context, row model.LedgerRow) error {
	return l.store.AppendLedgerRow(ctx, row)
}

// Multi fans an append out to every sink. All sinks are attempted even
// when an earlier one fails; failures are joined into one error.
type Multi struct {
	sinks []Ledger
}

// NewMulti combines sinks into a single Ledger.
func NewMulti(sinks ...Ledger) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Append(ctx context.Context, row model.LedgerRow) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
