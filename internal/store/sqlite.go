package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS seen_listings (
	id      TEXT PRIMARY KEY,
	seen_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contact_cache (
	agent      TEXT NOT NULL,
	locality   TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (agent, locality)
);

CREATE TABLE IF NOT EXISTS ledger_rows (
	id         TEXT PRIMARY KEY,
	ts         DATETIME NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	agent      TEXT NOT NULL DEFAULT '',
	detail_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dataset_progress (
	dataset_id  TEXT PRIMARY KEY,
	next_offset INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ledger_rows_ts ON ledger_rows(ts);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) HasSeen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_listings WHERE id = ?`, id,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has seen %s", id)
	}
	return true, nil
}

// MarkSeenIfNew claims the id via the primary-key constraint. Exactly one
// concurrent caller observes a rows-affected count of 1.
func (s *SQLiteStore) MarkSeenIfNew(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_listings (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark seen %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkSeen(ctx context.Context, id string) error {
	_, err := s.MarkSeenIfNew(ctx, id)
	return err
}

func (s *SQLiteStore) UnmarkSeen(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen_listings WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: unmark seen %s", id)
}

func (s *SQLiteStore) SeenIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_listings ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: seen ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan seen id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: seen ids iterate")
}

func (s *SQLiteStore) GetContact(ctx context.Context, agent, locality string) (*model.Contact, error) {
	var c model.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT phone, email FROM contact_cache WHERE agent = ? AND locality = ?`,
		agent, locality,
	).Scan(&c.Phone, &c.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contact %s/%s", agent, locality)
	}
	return &c, nil
}

func (s *SQLiteStore) PutContact(ctx context.Context, agent, locality string, c model.Contact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_cache (agent, locality, phone, email, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(agent, locality) DO UPDATE SET
		   phone = excluded.phone, email = excluded.email, updated_at = excluded.updated_at`,
		agent, locality, c.Phone, c.Email, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put contact %s/%s", agent, locality)
}

func (s *SQLiteStore) AppendLedgerRow(ctx context.Context, row model.LedgerRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_rows (id, ts, address, phone, email, agent, detail_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Timestamp.UTC(), row.Address, row.Phone, row.Email, row.AgentName, row.DetailURL,
	)
	return eris.Wrapf(err, "sqlite: append ledger row %s", row.ID)
}

func (s *SQLiteStore) ListLedgerRows(ctx context.Context, since time.Time) ([]model.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, address, phone, email, agent, detail_url FROM ledger_rows
		 WHERE ts >= ? ORDER BY ts`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ledger rows")
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		var r model.LedgerRow
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Address, &r.Phone, &r.Email, &r.AgentName, &r.DetailURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ledger row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: ledger rows iterate")
}

func (s *SQLiteStore) DatasetOffset(ctx context.Context, datasetID string) (int, error) {
	var offset int
	err := s.db.QueryRowContext(ctx,
		`SELECT next_offset FROM dataset_progress WHERE dataset_id = ?`, datasetID,
	).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: dataset offset %s", datasetID)
	}
	return offset, nil
}

func (s *SQLiteStore) SetDatasetOffset(ctx context.Context, datasetID string, offset int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_progress (dataset_id, next_offset) VALUES (?, ?)
		 ON CONFLICT(dataset_id) DO UPDATE SET next_offset = excluded.next_offset`,
		datasetID, offset,
	)
	return eris.Wrapf(err, "sqlite: set dataset offset %s", datasetID)
}
