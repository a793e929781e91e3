package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/db"
	"github.com/sells-group/reconcile-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	columns *model.ColumnRegistry
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	columns *model.ColumnRegistry
}

// WithColumns sets the registry used to map bank statement fields onto
// application columns.
func WithColumns(reg *model.ColumnRegistry) Option {
	return func(o *options) {
		if reg != nil {
			o.columns = reg
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{columns: model.DefaultRegistry()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, opts ...Option) (*PostgresStore, error) {
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
	return newPostgresStore(pool, pool.Close, opts...), nil
}

func newPostgresStore(pool db.Pool, closeFn func(), opts ...Option) *PostgresStore {
	o := applyOptions(opts)
	return &PostgresStore{pool: pool, closeFn: closeFn, columns: o.columns}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bank_statement_fields (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	statement_id   TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL,
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  DOUBLE PRECISION,
	parsed_at      TIMESTAMPTZ,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS application_form_fields (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	snapshot_id    TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL,
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  DOUBLE PRECISION,
	submitted_at   TIMESTAMPTZ,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ocr_fields (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	doc_id         TEXT NOT NULL,
	doc_group      TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL DEFAULT '',
	label          TEXT NOT NULL DEFAULT '',
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  DOUBLE PRECISION,
	confidence     DOUBLE PRECISION,
	observed_at    TIMESTAMPTZ,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_bank_statement_fields_app ON bank_statement_fields(application_id, position);
CREATE INDEX IF NOT EXISTS idx_application_form_fields_app ON application_form_fields(application_id, submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_ocr_fields_app ON ocr_fields(application_id, position);
`

const (
	pgApplicationExists = `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`

	pgBankingFields = `SELECT statement_id, field, value, numeric_value, parsed_at
		FROM bank_statement_fields WHERE application_id = $1 ORDER BY position, id`

	pgClientFormFields = `SELECT snapshot_id, field, value, numeric_value, submitted_at
		FROM application_form_fields
		WHERE application_id = $1 AND snapshot_id = (
			SELECT snapshot_id FROM application_form_fields
			WHERE application_id = $1 ORDER BY submitted_at DESC NULLS LAST LIMIT 1)
		ORDER BY position, id`

	pgOcrFields = `SELECT doc_id, doc_group, field, value, numeric_value, observed_at
		FROM ocr_fields WHERE application_id = $1 AND field <> '' ORDER BY position, id`

	pgOcrObservations = `SELECT doc_id, doc_group, label, value, confidence
		FROM ocr_fields WHERE application_id = $1 ORDER BY position, id`
)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, pgApplicationExists, applicationID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: application exists %s", applicationID)
	}
	return exists, nil
}

func (s *PostgresStore) BankingFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, pgBankingFields, applicationID, false)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: banking fields")
	}
	return bankValues(rows, s.columns), nil
}

func (s *PostgresStore) ClientFormFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, pgClientFormFields, applicationID, false)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: client form fields")
	}
	return formValues(rows), nil
}

func (s *PostgresStore) OcrFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, pgOcrFields, applicationID, true)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: ocr fields")
	}
	return ocrValues(rows), nil
}

func (s *PostgresStore) OcrObservations(ctx context.Context, applicationID string) ([]model.OcrFieldObservation, error) {
	rows, err := s.pool.Query(ctx, pgOcrObservations, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: ocr observations")
	}
	defer rows.Close()

	out := []model.OcrFieldObservation{}
	for rows.Next() {
		var o model.OcrFieldObservation
		if err := rows.Scan(&o.DocID, &o.Group, &o.Label, &o.Value, &o.Confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ocr observation")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: ocr observations rows")
}

// queryFields runs one of the field queries. grouped queries select the
// document group after the source id.
func (s *PostgresStore) queryFields(ctx context.Context, sql, applicationID string, grouped bool) ([]fieldRow, error) {
	rows, err := s.pool.Query(ctx, sql, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "query")
	}
	defer rows.Close()

	var out []fieldRow
	for rows.Next() {
		var r fieldRow
		dest := []any{&r.sourceID}
		if grouped {
			dest = append(dest, &r.group)
		}
		dest = append(dest, &r.field, &r.raw, &r.numeric, &r.observedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "scan")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "rows")
}

// Seed replaces the application and all of its field rows in one transaction.
func (s *PostgresStore) Seed(ctx context.Context, app Application) error {
	if app.ID == "" {
		return eris.New("postgres: seed: application id is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin seed")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO applications (id, business_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET business_name = EXCLUDED.business_name`,
		app.ID, app.BusinessName,
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert application %s", app.ID)
	}

	for _, table := range []string{"bank_statement_fields", "application_form_fields", "ocr_fields"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()+" WHERE application_id = $1", app.ID); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	rows := flatten(app, func() string { return uuid.New().String() })
	loads := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"bank_statement_fields", bankColumns, rows.bank},
		{"application_form_fields", formColumns, rows.form},
		{"ocr_fields", ocrColumns, rows.ocr},
	}
	for _, l := range loads {
		n, err := db.CopyFrom(ctx, tx, l.table, l.columns, l.rows)
		if err != nil {
			return eris.Wrap(err, "postgres: seed")
		}
		zap.L().Debug("seeded field rows",
			zap.String("application_id", app.ID),
			zap.String("table", l.table),
			zap.Int64("rows", n),
		)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit seed")
}
