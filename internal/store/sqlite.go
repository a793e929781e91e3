package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/reconcile-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	columns *model.ColumnRegistry
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	o := applyOptions(opts)
	return &SQLiteStore{db: db, columns: o.columns}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS bank_statement_fields (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	statement_id   TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL,
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  REAL,
	parsed_at      TEXT,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS application_form_fields (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	snapshot_id    TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL,
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  REAL,
	submitted_at   TEXT,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ocr_fields (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	doc_id         TEXT NOT NULL,
	doc_group      TEXT NOT NULL DEFAULT '',
	field          TEXT NOT NULL DEFAULT '',
	label          TEXT NOT NULL DEFAULT '',
	value          TEXT NOT NULL DEFAULT '',
	numeric_value  REAL,
	confidence     REAL,
	observed_at    TEXT,
	position       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_bank_statement_fields_app ON bank_statement_fields(application_id, position);
CREATE INDEX IF NOT EXISTS idx_application_form_fields_app ON application_form_fields(application_id, submitted_at);
CREATE INDEX IF NOT EXISTS idx_ocr_fields_app ON ocr_fields(application_id, position);
`

const (
	sqliteBankingFields = `SELECT statement_id, field, value, numeric_value, parsed_at
		FROM bank_statement_fields WHERE application_id = ? ORDER BY position, id`

	sqliteClientFormFields = `SELECT snapshot_id, field, value, numeric_value, submitted_at
		FROM application_form_fields
		WHERE application_id = ? AND snapshot_id = (
			SELECT snapshot_id FROM application_form_fields
			WHERE application_id = ? ORDER BY submitted_at DESC NULLS LAST LIMIT 1)
		ORDER BY position, id`

	sqliteOcrFields = `SELECT doc_id, doc_group, field, value, numeric_value, observed_at
		FROM ocr_fields WHERE application_id = ? AND field <> '' ORDER BY position, id`
)

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ApplicationExists(ctx context.Context, applicationID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM applications WHERE id = ?`, applicationID).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: application exists %s", applicationID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) BankingFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, sqliteBankingFields, false, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: banking fields")
	}
	return bankValues(rows, s.columns), nil
}

func (s *SQLiteStore) ClientFormFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, sqliteClientFormFields, false, applicationID, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: client form fields")
	}
	return formValues(rows), nil
}

func (s *SQLiteStore) OcrFields(ctx context.Context, applicationID string) ([]model.SourcedValue, error) {
	rows, err := s.queryFields(ctx, sqliteOcrFields, true, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: ocr fields")
	}
	return ocrValues(rows), nil
}

func (s *SQLiteStore) OcrObservations(ctx context.Context, applicationID string) ([]model.OcrFieldObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, doc_group, label, value, confidence
		FROM ocr_fields WHERE application_id = ? ORDER BY position, id`, applicationID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: ocr observations")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.OcrFieldObservation{}
	for rows.Next() {
		var o model.OcrFieldObservation
		var conf sql.NullFloat64
		if err := rows.Scan(&o.DocID, &o.Group, &o.Label, &o.Value, &conf); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ocr observation")
		}
		if conf.Valid {
			o.Confidence = &conf.Float64
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: ocr observations rows")
}

type scannable interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) queryFields(ctx context.Context, query string, grouped bool, args ...any) ([]fieldRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "query")
	}
	defer rows.Close() //nolint:errcheck

	var out []fieldRow
	for rows.Next() {
		r, err := scanFieldRow(rows, grouped)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "rows")
}

func scanFieldRow(row scannable, grouped bool) (fieldRow, error) {
	var (
		r   fieldRow
		num sql.NullFloat64
		at  sql.NullString
	)
	dest := []any{&r.sourceID}
	if grouped {
		dest = append(dest, &r.group)
	}
	dest = append(dest, &r.field, &r.raw, &num, &at)
	if err := row.Scan(dest...); err != nil {
		return r, eris.Wrap(err, "scan")
	}
	if num.Valid {
		r.numeric = &num.Float64
	}
	if at.Valid && at.String != "" {
		t, err := time.Parse(time.RFC3339Nano, at.String)
		if err != nil {
			return r, eris.Wrapf(err, "parse timestamp %q", at.String)
		}
		r.observedAt = &t
	}
	return r, nil
}

// Seed replaces the application and all of its field rows in one transaction.
func (s *SQLiteStore) Seed(ctx context.Context, app Application) error {
	if app.ID == "" {
		return eris.New("sqlite: seed: application id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO applications (id, business_name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET business_name = excluded.business_name`,
		app.ID, app.BusinessName,
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert application %s", app.ID)
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
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+l.table+" WHERE application_id = ?", app.ID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", l.table)
		}
		if len(l.rows) == 0 {
			continue
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL(l.table, l.columns))
		if err != nil {
			return eris.Wrapf(err, "sqlite: prepare insert %s", l.table)
		}
		for _, r := range l.rows {
			if _, err := stmt.ExecContext(ctx, sqliteArgs(r)...); err != nil {
				stmt.Close() //nolint:errcheck
				return eris.Wrapf(err, "sqlite: insert %s", l.table)
			}
		}
		stmt.Close() //nolint:errcheck
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit seed")
}

func insertSQL(table string, columns []string) string {
	q := "INSERT INTO " + table + " ("
	vals := ""
	for i, c := range columns {
		if i > 0 {
			q += ", "
			vals += ", "
		}
		q += c
		vals += "?"
	}
	return q + ") VALUES (" + vals + ")"
}

// sqliteArgs stores timestamps as RFC 3339 text and nil pointers as NULL.
func sqliteArgs(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case *time.Time:
			if x != nil {
				out[i] = x.UTC().Format(time.RFC3339Nano)
			}
		case *float64:
			if x != nil {
				out[i] = *x
			}
		default:
			out[i] = v
		}
	}
	return out
}
