package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caseflow/internal/filing/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists filings and their staged uploads.
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

func (s *PostgresStore) CreateFiling(ctx context.Context, f models.Filing) error {
	query := `
		INSERT INTO filings
			(id, tenant, case_id, filing_type, filed_by, filed_date, status,
			 document_id, docket_entry_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		f.ID.String(), f.Tenant.String(), f.CaseID.String(), f.FilingType,
		f.FiledBy, f.FiledDate, f.Status, f.DocumentID.String(),
		f.DocketEntryID.String(), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert filing: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindFilingByID(ctx context.Context, tenant id.TenantID, filingID id.FilingID) (*models.Filing, error) {
	query := `
		SELECT id, tenant, case_id, filing_type, filed_by, filed_date, status,
		       document_id, docket_entry_id, created_at
		FROM filings
		WHERE tenant = $1 AND id = $2
	`
	var f models.Filing
	var rawID, rawCaseID, rawDocID, rawEntryID string
	err := s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), filingID.String()).
		Scan(&rawID, &f.Tenant, &rawCaseID, &f.FilingType, &f.FiledBy,
			&f.FiledDate, &f.Status, &rawDocID, &rawEntryID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find filing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find filing: %w", err)
	}
	if f.ID, err = id.ParseFilingID(rawID); err != nil {
		return nil, fmt.Errorf("scan filing id: %w", err)
	}
	if f.CaseID, err = id.ParseCaseID(rawCaseID); err != nil {
		return nil, fmt.Errorf("scan filing case id: %w", err)
	}
	if f.DocumentID, err = id.ParseDocumentID(rawDocID); err != nil {
		return nil, fmt.Errorf("scan filing document id: %w", err)
	}
	if f.DocketEntryID, err = id.ParseDocketEntryID(rawEntryID); err != nil {
		return nil, fmt.Errorf("scan filing docket entry id: %w", err)
	}
	return &f, nil
}

// --- staged uploads ---

const uploadColumns = `
	id, tenant, filename, file_size, content_type, storage_key,
	COALESCE(sha256, ''), uploaded_at, created_at
`

func scanUpload(row interface{ Scan(...any) error }) (*models.FilingUpload, error) {
	var u models.FilingUpload
	var rawID string
	var uploadedAt sql.NullTime
	err := row.Scan(&rawID, &u.Tenant, &u.Filename, &u.FileSize, &u.ContentType,
		&u.StorageKey, &u.SHA256, &uploadedAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if u.ID, err = id.ParseUploadID(rawID); err != nil {
		return nil, err
	}
	if uploadedAt.Valid {
		t := uploadedAt.Time
		u.UploadedAt = &t
	}
	return &u, nil
}

// CreatePendingUpload stages an upload row with uploaded_at null.
func (s *PostgresStore) CreatePendingUpload(ctx context.Context, u models.FilingUpload) error {
	query := `
		INSERT INTO filing_uploads
			(id, tenant, filename, file_size, content_type, storage_key, sha256, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		u.ID.String(), u.Tenant.String(), u.Filename, u.FileSize,
		u.ContentType, u.StorageKey, u.SHA256, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert filing upload: %w", err)
	}
	return nil
}

// MarkUploadFinalized stamps uploaded_at after the object store confirms the
// bytes. Repeat finalizes report ErrInvalidState.
func (s *PostgresStore) MarkUploadFinalized(ctx context.Context, tenant id.TenantID, uploadID id.UploadID, sha256 string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE filing_uploads
		SET uploaded_at = NOW(), sha256 = COALESCE(NULLIF($3, ''), sha256)
		WHERE tenant = $1 AND id = $2 AND uploaded_at IS NULL
	`, tenant.String(), uploadID.String(), sha256)
	if err != nil {
		return fmt.Errorf("finalize filing upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize filing upload rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finalize filing upload: %w", sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) FindUploadByID(ctx context.Context, tenant id.TenantID, uploadID id.UploadID) (*models.FilingUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM filing_uploads WHERE tenant = $1 AND id = $2`
	u, err := scanUpload(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), uploadID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find filing upload: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find filing upload: %w", err)
	}
	return u, nil
}
