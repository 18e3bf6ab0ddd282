package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"caseflow/internal/nef/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists notices of electronic filing. Recipients are stored
// as a JSONB snapshot; the unique index on (tenant, filing_id) enforces the
// one-notice-per-filing rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const nefColumns = `
	id, tenant, filing_id, document_id, case_id, docket_entry_id,
	recipients, html_snapshot, created_at
`

func scanNef(row interface{ Scan(...any) error }) (*models.Nef, error) {
	var n models.Nef
	var rawID, rawFilingID, rawDocID, rawCaseID, rawEntryID string
	var recipients []byte
	err := row.Scan(&rawID, &n.Tenant, &rawFilingID, &rawDocID, &rawCaseID,
		&rawEntryID, &recipients, &n.HTMLSnapshot, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if n.ID, err = id.ParseNefID(rawID); err != nil {
		return nil, err
	}
	if n.FilingID, err = id.ParseFilingID(rawFilingID); err != nil {
		return nil, err
	}
	if n.DocumentID, err = id.ParseDocumentID(rawDocID); err != nil {
		return nil, err
	}
	if n.CaseID, err = id.ParseCaseID(rawCaseID); err != nil {
		return nil, err
	}
	if n.DocketEntryID, err = id.ParseDocketEntryID(rawEntryID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recipients, &n.Recipients); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	return &n, nil
}

// Create inserts a notice. A second notice for the same filing collides on the
// unique index and surfaces as ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, n models.Nef) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("encode recipients: %w", err)
	}
	query := `
		INSERT INTO nefs
			(id, tenant, filing_id, document_id, case_id, docket_entry_id,
			 recipients, html_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		n.ID.String(), n.Tenant.String(), n.FilingID.String(),
		n.DocumentID.String(), n.CaseID.String(), n.DocketEntryID.String(),
		recipients, n.HTMLSnapshot, n.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert nef: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert nef: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenant id.TenantID, nefID id.NefID) (*models.Nef, error) {
	query := `SELECT ` + nefColumns + ` FROM nefs WHERE tenant = $1 AND id = $2`
	return s.findOne(ctx, query, tenant.String(), nefID.String())
}

func (s *PostgresStore) FindByFiling(ctx context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Nef, error) {
	query := `SELECT ` + nefColumns + ` FROM nefs WHERE tenant = $1 AND filing_id = $2`
	return s.findOne(ctx, query, tenant.String(), filingID.String())
}

func (s *PostgresStore) FindByDocketEntry(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.Nef, error) {
	query := `SELECT ` + nefColumns + ` FROM nefs WHERE tenant = $1 AND docket_entry_id = $2`
	return s.findOne(ctx, query, tenant.String(), entryID.String())
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Nef, error) {
	n, err := scanNef(s.execer(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find nef: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find nef: %w", err)
	}
	return n, nil
}

// ListByCase returns a case's notices, newest first.
func (s *PostgresStore) ListByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.Nef, error) {
	query := `
		SELECT ` + nefColumns + `
		FROM nefs
		WHERE tenant = $1 AND case_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenant.String(), caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list nefs: %w", err)
	}
	defer rows.Close()

	var nefs []models.Nef
	for rows.Next() {
		n, err := scanNef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nef: %w", err)
		}
		nefs = append(nefs, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nefs: %w", err)
	}
	return nefs, nil
}
