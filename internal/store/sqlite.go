package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/provider-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
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
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	npi                  TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	address              TEXT NOT NULL DEFAULT '',
	city                 TEXT NOT NULL DEFAULT '',
	state                TEXT NOT NULL DEFAULT '',
	zip                  TEXT NOT NULL DEFAULT '',
	specialty            TEXT NOT NULL DEFAULT '',
	standardized_address TEXT NOT NULL DEFAULT '',
	network_status       TEXT NOT NULL DEFAULT '',
	validation_status    TEXT NOT NULL,
	confidence_score     REAL NOT NULL DEFAULT 0,
	processed_at         DATETIME NOT NULL,
	audit_log            TEXT NOT NULL DEFAULT '[]',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS batch_runs (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL DEFAULT '',
	total          INTEGER NOT NULL,
	approved       INTEGER NOT NULL,
	needs_review   INTEGER NOT NULL,
	rejected       INTEGER NOT NULL,
	avg_confidence REAL NOT NULL,
	total_seconds  REAL NOT NULL,
	summary        TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(validation_status);
CREATE INDEX IF NOT EXISTS idx_providers_updated_at ON providers(updated_at);
CREATE INDEX IF NOT EXISTS idx_batch_runs_created_at ON batch_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var sqliteUpsertProvider = upsertProviderSQL(func(int) string { return "?" })

func (s *SQLiteStore) UpsertProvider(ctx context.Context, rec model.FinalRecord) error {
	if rec.NPI == "" {
		return eris.New("sqlite: upsert provider: npi is required")
	}
	auditLog, err := marshalAuditLog(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, sqliteUpsertProvider,
		providerArgs(rec, auditLog, s.now().UTC())...,
	)
	return eris.Wrapf(err, "sqlite: upsert provider %s", rec.NPI)
}

func (s *SQLiteStore) GetProvider(ctx context.Context, npi string) (*model.StoredProvider, error) {
	row := s.db.QueryRowContext(ctx, providerSelect+` WHERE npi = ?`, npi)
	p, err := scanProvider(row, isSQLNoRows)
	if errors.Is(err, ErrNotFound) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: provider %s", npi)
	}
	return p, err
}

func (s *SQLiteStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.StoredProvider, error) {
	query := providerSelect + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND validation_status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at DESC, npi ASC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list providers")
	}
	defer rows.Close()

	var out []model.StoredProvider
	for rows.Next() {
		p, err := scanProvider(rows, isSQLNoRows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list providers iterate")
}

func (s *SQLiteStore) SaveBatchRun(ctx context.Context, run model.BatchRun) error {
	summary, err := marshalSummary(run.Summary)
	if err != nil {
		return err
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batch_runs (id, source, total, approved, needs_review, rejected, avg_confidence, total_seconds, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Summary.Total, run.Summary.Approved, run.Summary.NeedsReview, run.Summary.Rejected,
		run.Summary.AvgConfidence, run.Summary.TotalSeconds, string(summary), createdAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: save batch run %s", run.ID)
}

func (s *SQLiteStore) ListBatchRuns(ctx context.Context, limit int) ([]model.BatchRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, summary, created_at FROM batch_runs ORDER BY created_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batch runs")
	}
	defer rows.Close()

	var out []model.BatchRun
	for rows.Next() {
		r, err := scanBatchRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list batch runs iterate")
}

func isSQLNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
