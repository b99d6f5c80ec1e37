// Package store persists final provider records and batch runs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-cli/internal/config"
	"github.com/sells-group/provider-cli/internal/model"
)

// ErrNotFound is returned when a provider lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// DefaultListLimit caps list queries that do not set a limit.
const DefaultListLimit = 100

// ProviderFilter narrows ListProviders.
type ProviderFilter struct {
	Status model.FinalStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Store defines the persistence interface for processed providers.
type Store interface {
	// Providers
	UpsertProvider(ctx context.Context, rec model.FinalRecord) error
	GetProvider(ctx context.Context, npi string) (*model.StoredProvider, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]model.StoredProvider, error)

	// Batch runs
	SaveBatchRun(ctx context.Context, run model.BatchRun) error
	ListBatchRuns(ctx context.Context, limit int) ([]model.BatchRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and migrates the schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "providers.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// providerColumns are the providers table columns written on upsert, in
// argument order. created_at is set on insert only.
var providerColumns = []string{
	"npi", "name", "phone", "email", "address", "city", "state", "zip",
	"specialty", "standardized_address", "network_status",
	"validation_status", "confidence_score", "processed_at", "audit_log",
	"created_at", "updated_at",
}

const providerSelect = `SELECT npi, name, phone, email, address, city, state, zip,
	specialty, standardized_address, network_status,
	validation_status, confidence_score, processed_at, audit_log,
	created_at, updated_at FROM providers`

// upsertProviderSQL builds the INSERT ... ON CONFLICT statement for a
// dialect. placeholder returns the bind marker for a 1-based position.
func upsertProviderSQL(placeholder func(i int) string) string {
	marks := make([]string, len(providerColumns))
	var sets []string
	for i, col := range providerColumns {
		marks[i] = placeholder(i + 1)
		if col != "npi" && col != "created_at" {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO providers (%s) VALUES (%s) ON CONFLICT (npi) DO UPDATE SET %s",
		strings.Join(providerColumns, ", "),
		strings.Join(marks, ", "),
		strings.Join(sets, ", "),
	)
}

// providerArgs returns the upsert arguments for rec. The audit log is
// encoded as JSON.
func providerArgs(rec model.FinalRecord, auditLog []byte, now any) []any {
	return []any{
		rec.NPI, rec.Name, rec.Phone, rec.Email, rec.Address, rec.City, rec.State, rec.Zip,
		rec.Specialty, rec.StandardizedAddress, rec.NetworkStatus,
		string(rec.ValidationStatus), rec.ConfidenceScore, rec.ProcessedAt.UTC(), auditLog,
		now, now,
	}
}

func marshalAuditLog(rec model.FinalRecord) ([]byte, error) {
	trail := rec.AuditLog
	if trail == nil {
		trail = []model.AuditEntry{}
	}
	data, err := json.Marshal(trail)
	return data, eris.Wrap(err, "store: marshal audit log")
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

type scannable interface {
	Scan(dest ...any) error
}

// scanProvider reads one providerSelect row. isNoRows reports the driver's
// empty-result error.
func scanProvider(row scannable, isNoRows func(error) bool) (*model.StoredProvider, error) {
	var (
		p        model.StoredProvider
		status   string
		auditLog []byte
	)
	err := row.Scan(
		&p.NPI, &p.Name, &p.Phone, &p.Email, &p.Address, &p.City, &p.State, &p.Zip,
		&p.Specialty, &p.StandardizedAddress, &p.NetworkStatus,
		&status, &p.ConfidenceScore, &p.ProcessedAt, &auditLog,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan provider")
	}

	p.ValidationStatus = model.FinalStatus(status)
	if len(auditLog) > 0 {
		if err := json.Unmarshal(auditLog, &p.AuditLog); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal audit log")
		}
	}
	return &p, nil
}

func scanBatchRun(row scannable) (*model.BatchRun, error) {
	var (
		r       model.BatchRun
		summary []byte
	)
	if err := row.Scan(&r.ID, &r.Source, &summary, &r.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "store: scan batch run")
	}
	if err := json.Unmarshal(summary, &r.Summary); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal batch summary")
	}
	return &r, nil
}

func marshalSummary(s model.BatchSummary) ([]byte, error) {
	data, err := json.Marshal(s)
	return data, eris.Wrap(err, "store: marshal batch summary")
}
