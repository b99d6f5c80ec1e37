package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-cli/internal/db"
	"github.com/sells-group/provider-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var postgresUpsertProvider = upsertProviderSQL(func(i int) string { return fmt.Sprintf("$%d", i) })

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// postgresMigration is applied one statement at a time inside a single
// transaction.
var postgresMigration = []string{
	`CREATE TABLE IF NOT EXISTS providers (
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
	confidence_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
	processed_at         TIMESTAMPTZ NOT NULL,
	audit_log            JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS batch_runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source         TEXT NOT NULL DEFAULT '',
	total          INTEGER NOT NULL,
	approved       INTEGER NOT NULL,
	needs_review   INTEGER NOT NULL,
	rejected       INTEGER NOT NULL,
	avg_confidence DOUBLE PRECISION NOT NULL,
	total_seconds  DOUBLE PRECISION NOT NULL,
	summary        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(validation_status)`,
	`CREATE INDEX IF NOT EXISTS idx_providers_updated_at ON providers(updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_batch_runs_created_at ON batch_runs(created_at DESC)`,
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range postgresMigration {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertProvider(ctx context.Context, rec model.FinalRecord) error {
	if rec.NPI == "" {
		return eris.New("postgres: upsert provider: npi is required")
	}
	auditLog, err := marshalAuditLog(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, postgresUpsertProvider, providerArgs(rec, auditLog, s.now().UTC())...)
	return eris.Wrapf(err, "postgres: upsert provider %s", rec.NPI)
}

func (s *PostgresStore) GetProvider(ctx context.Context, npi string) (*model.StoredProvider, error) {
	row := s.pool.QueryRow(ctx, providerSelect+` WHERE npi = $1`, npi)
	p, err := scanProvider(row, isPgNoRows)
	if errors.Is(err, ErrNotFound) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: provider %s", npi)
	}
	return p, err
}

func (s *PostgresStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.StoredProvider, error) {
	query := providerSelect + ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND validation_status = $%d`, len(args))
	}
	args = append(args, listLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY updated_at DESC, npi ASC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list providers")
	}
	defer rows.Close()

	var out []model.StoredProvider
	for rows.Next() {
		p, err := scanProvider(rows, isPgNoRows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list providers iterate")
}

func (s *PostgresStore) SaveBatchRun(ctx context.Context, run model.BatchRun) error {
	summary, err := marshalSummary(run.Summary)
	if err != nil {
		return err
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO batch_runs (id, source, total, approved, needs_review, rejected, avg_confidence, total_seconds, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Source, run.Summary.Total, run.Summary.Approved, run.Summary.NeedsReview, run.Summary.Rejected,
		run.Summary.AvgConfidence, run.Summary.TotalSeconds, summary, createdAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: save batch run %s", run.ID)
}

func (s *PostgresStore) ListBatchRuns(ctx context.Context, limit int) ([]model.BatchRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, summary, created_at FROM batch_runs ORDER BY created_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batch runs")
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
	return out, eris.Wrap(rows.Err(), "postgres: list batch runs iterate")
}

func isPgNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
