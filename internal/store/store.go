package store

import (
	"context"
	"time"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// Store defines the persistence interface for the lead pipeline: the durable
// seen-set, the agent contact cache, the local ledger mirror, and dataset
// fetch progress. All of it must survive process restarts.
type Store interface {
	// Seen set. MarkSeenIfNew is the atomic check-and-mark: it returns true
	// only for the single caller that claims the id, across processes.
	HasSeen(ctx context.Context, id string) (bool, error)
	MarkSeenIfNew(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string) error
	UnmarkSeen(ctx context.Context, id string) error
	SeenIDs(ctx context.Context) ([]string, error)

	// Contact cache, keyed by (agent, locality) with last-write-wins upserts.
	// GetContact returns (nil, nil) on a miss.
	GetContact(ctx context.Context, agent, locality string) (*model.Contact, error)
	PutContact(ctx context.Context, agent, locality string, c model.Contact) error

	// Local ledger rows (audit mirror; also feeds export and replay).
	AppendLedgerRow(ctx context.Context, row model.LedgerRow) error
	ListLedgerRows(ctx context.Context, since time.Time) ([]model.LedgerRow, error)

	// Dataset fetch progress, so repeated webhook/poll runs only pull new rows.
	DatasetOffset(ctx context.Context, datasetID string) (int, error)
	SetDatasetOffset(ctx context.Context, datasetID string, offset int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
