package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses. pgxmock's
// PgxPoolIface satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS seen_listings (
	id      TEXT PRIMARY KEY,
	seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contact_cache (
	agent      TEXT NOT NULL,
	locality   TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (agent, locality)
);

CREATE TABLE IF NOT EXISTS ledger_rows (
	id         TEXT PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) HasSeen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM seen_listings WHERE id = $1`, id,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: has seen %s", id)
	}
	return true, nil
}

func (s *PostgresStore) MarkSeenIfNew(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO seen_listings (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark seen %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkSeen(ctx context.Context, id string) error {
	_, err := s.MarkSeenIfNew(ctx, id)
	return err
}

func (s *PostgresStore) UnmarkSeen(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM seen_listings WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: unmark seen %s", id)
}

func (s *PostgresStore) SeenIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM seen_listings ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: seen ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan seen id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: seen ids iterate")
}

func (s *PostgresStore) GetContact(ctx context.Context, agent, locality string) (*model.Contact, error) {
	var c model.Contact
	err := s.pool.QueryRow(ctx,
		`SELECT phone, email FROM contact_cache WHERE agent = $1 AND locality = $2`,
		agent, locality,
	).Scan(&c.Phone, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contact %s/%s", agent, locality)
	}
	return &c, nil
}

func (s *PostgresStore) PutContact(ctx context.Context, agent, locality string, c model.Contact) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contact_cache (agent, locality, phone, email, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (agent, locality) DO UPDATE SET
		   phone = excluded.phone, email = excluded.email, updated_at = excluded.updated_at`,
		agent, locality, c.Phone, c.Email, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put contact %s/%s", agent, locality)
}

func (s *PostgresStore) AppendLedgerRow(ctx context.Context, row model.LedgerRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_rows (id, ts, address, phone, email, agent, detail_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.Timestamp.UTC(), row.Address, row.Phone, row.Email, row.AgentName, row.DetailURL,
	)
	return eris.Wrapf(err, "postgres: append ledger row %s", row.ID)
}

func (s *PostgresStore) ListLedgerRows(ctx context.Context, since time.Time) ([]model.LedgerRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, address, phone, email, agent, detail_url FROM ledger_rows
		 WHERE ts >= $1 ORDER BY ts`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ledger rows")
	}
	defer rows.Close()

	var out []model.LedgerRow
	for rows.Next() {
		var r model.LedgerRow
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Address, &r.Phone, &r.Email, &r.AgentName, &r.DetailURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ledger row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: ledger rows iterate")
}

func (s *PostgresStore) DatasetOffset(ctx context.Context, datasetID string) (int, error) {
	var offset int
	err := s.pool.QueryRow(ctx,
		`SELECT next_offset FROM dataset_progress WHERE dataset_id = $1`, datasetID,
	).Scan(&offset)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: dataset offset %s", datasetID)
	}
	return offset, nil
}

func (s *PostgresStore) SetDatasetOffset(ctx context.Context, datasetID string, offset int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dataset_progress (dataset_id, next_offset) VALUES ($1, $2)
		 ON CONFLICT (dataset_id) DO UPDATE SET next_offset = excluded.next_offset`,
		datasetID, offset,
	)
	return eris.Wrapf(err, "postgres: set dataset offset %s", datasetID)
}
