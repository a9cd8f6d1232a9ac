package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortsale-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Seen set ---

func TestSQLite_SeenSet_MarkAndCheck(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seen, err := st.HasSeen(ctx, "Z100")
	require.NoError(t, err)
	assert.False(t, seen)

	first, err := st.MarkSeenIfNew(ctx, "Z100")
	require.NoError(t, err)
	assert.True(t, first)

	seen, err = st.HasSeen(ctx, "Z100")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSQLite_SeenSet_SecondClaimLoses(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.MarkSeenIfNew(ctx, "Z200")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := st.MarkSeenIfNew(ctx, "Z200")
	require.NoError(t, err)
	assert.False(t, second)
}

func TestSQLite_SeenSet_MarkSeenIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkSeen(ctx, "Z300"))
	require.NoError(t, st.MarkSeen(ctx, "Z300"))

	seen, err := st.HasSeen(ctx, "Z300")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestSQLite_SeenSet_ConcurrentClaim_OneWinner(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	const claimers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := st.MarkSeenIfNew(ctx, "Z-race")
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestSQLite_SeenSet_UnmarkReleasesClaim(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.MarkSeenIfNew(ctx, "Z400")
	require.NoError(t, err)
	require.NoError(t, st.UnmarkSeen(ctx, "Z400"))

	first, err := st.MarkSeenIfNew(ctx, "Z400")
	require.NoError(t, err)
	assert.True(t, first)
}

func TestSQLite_SeenIDs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.MarkSeen(ctx, "B2"))
	require.NoError(t, st.MarkSeen(ctx, "A1"))

	ids, err := st.SeenIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, ids)
}

// --- Contact cache ---

func TestSQLite_ContactCache_Miss(t *testing.T) {
	st := newTestSQLiteStore(t)

	c, err := st.GetContact(context.Background(), "jane doe", "TX")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSQLite_ContactCache_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.PutContact(ctx, "jane doe", "TX", model.Contact{Phone: "555-010-0100", Email: "jane@realty.com"})
	require.NoError(t, err)

	c, err := st.GetContact(ctx, "jane doe", "TX")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "555-010-0100", c.Phone)
	assert.Equal(t, "jane@realty.com", c.Email)
}

func TestSQLite_ContactCache_LastWriteWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutContact(ctx, "jane doe", "TX", model.Contact{Phone: "555-010-0100"}))
	require.NoError(t, st.PutContact(ctx, "jane doe", "TX", model.Contact{Phone: "555-010-0200", Email: "jane@realty.com"}))

	c, err := st.GetContact(ctx, "jane doe", "TX")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "555-010-0200", c.Phone)
	assert.Equal(t, "jane@realty.com", c.Email)
}

func TestSQLite_ContactCache_KeyIsComposite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutContact(ctx, "jane doe", "TX", model.Contact{Phone: "555-010-0100"}))

	c, err := st.GetContact(ctx, "jane doe", "CA")
	require.NoError(t, err)
	assert.Nil(t, c)
}

// --- Ledger rows ---

func TestSQLite_LedgerRows_AppendAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	row := model.LedgerRow{
		ID:        "row-1",
		Timestamp: now,
		Address:   "12 Elm St, Austin, TX",
		Phone:     "555-010-0100",
		AgentName: "Jane Doe",
		DetailURL: "https://example.com/homes/12-elm",
	}
	require.NoError(t, st.AppendLedgerRow(ctx, row))

	rows, err := st.ListLedgerRows(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12 Elm St, Austin, TX", rows[0].Address)
	assert.Equal(t, "Jane Doe", rows[0].AgentName)
}

func TestSQLite_LedgerRows_SinceFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	old := model.LedgerRow{ID: "old", Timestamp: time.Now().UTC().Add(-48 * time.Hour)}
	recent := model.LedgerRow{ID: "recent", Timestamp: time.Now().UTC()}
	require.NoError(t, st.AppendLedgerRow(ctx, old))
	require.NoError(t, st.AppendLedgerRow(ctx, recent))

	rows, err := st.ListLedgerRows(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "recent", rows[0].ID)
}

// --- Dataset progress ---

func TestSQLite_DatasetProgress(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	offset, err := st.DatasetOffset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	require.NoError(t, st.SetDatasetOffset(ctx, "ds-1", 42))
	require.NoError(t, st.SetDatasetOffset(ctx, "ds-1", 99))

	offset, err = st.DatasetOffset(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, 99, offset)
}
