package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"caseflow/internal/docket/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists docket entries, the per-case entry counters, and
// docket attachments.
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

// NextEntryNumber allocates the next entry number for a case. The counter row
// is upserted under its row lock, which serializes concurrent submissions on
// the same case for the remainder of the transaction.
func (s *PostgresStore) NextEntryNumber(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (int, error) {
	query := `
		INSERT INTO docket_counters (tenant, case_id, next_entry)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant, case_id)
		DO UPDATE SET next_entry = docket_counters.next_entry + 1
		RETURNING next_entry
	`
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), caseID.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("allocate entry number: %w", err)
	}
	return n, nil
}

// CreateEntry inserts a docket entry with an already-allocated entry number.
// The unique index on (tenant, case_id, entry_number) backstops the counter;
// a violation surfaces as ErrConflict for the caller to retry transactionally.
func (s *PostgresStore) CreateEntry(ctx context.Context, e models.DocketEntry) error {
	query := `
		INSERT INTO docket_entries
			(id, tenant, case_id, entry_number, entry_type, description,
			 filed_by, date_filed, is_sealed, document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var docID any
	if e.DocumentID != nil {
		docID = e.DocumentID.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID.String(), e.Tenant.String(), e.CaseID.String(), e.EntryNumber,
		e.EntryType, e.Description, e.FiledBy, e.DateFiled, e.IsSealed, docID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert docket entry: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert docket entry: %w", err)
	}
	return nil
}

const entryColumns = `
	id, tenant, case_id, entry_number, entry_type, description,
	COALESCE(filed_by, ''), date_filed, is_sealed, document_id
`

func scanEntry(row interface{ Scan(...any) error }) (*models.DocketEntry, error) {
	var e models.DocketEntry
	var rawID, rawCaseID string
	var rawDocID sql.NullString
	err := row.Scan(&rawID, &e.Tenant, &rawCaseID, &e.EntryNumber, &e.EntryType,
		&e.Description, &e.FiledBy, &e.DateFiled, &e.IsSealed, &rawDocID)
	if err != nil {
		return nil, err
	}
	if e.ID, err = id.ParseDocketEntryID(rawID); err != nil {
		return nil, err
	}
	if e.CaseID, err = id.ParseCaseID(rawCaseID); err != nil {
		return nil, err
	}
	if rawDocID.Valid {
		docID, err := id.ParseDocumentID(rawDocID.String)
		if err != nil {
			return nil, err
		}
		e.DocumentID = &docID
	}
	return &e, nil
}

func (s *PostgresStore) FindEntryByID(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) (*models.DocketEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM docket_entries WHERE tenant = $1 AND id = $2`
	e, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), entryID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find docket entry: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find docket entry: %w", err)
	}
	return e, nil
}

// ListEntriesByCase returns a case's docket ordered by entry number.
func (s *PostgresStore) ListEntriesByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID, limit, offset int) ([]models.DocketEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM docket_entries
		WHERE tenant = $1 AND case_id = $2
		ORDER BY entry_number ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenant.String(), caseID.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list docket entries: %w", err)
	}
	defer rows.Close()

	var entries []models.DocketEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan docket entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate docket entries: %w", err)
	}
	return entries, nil
}

// LinkDocument points an entry at a document. Used by the best-effort
// promotion back-link, so a missing entry is reported, not invented.
func (s *PostgresStore) LinkDocument(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID, docID id.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE docket_entries SET document_id = $3 WHERE tenant = $1 AND id = $2`,
		tenant.String(), entryID.String(), docID.String())
	if err != nil {
		return fmt.Errorf("link document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link document rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("link document: %w", sentinel.ErrNotFound)
	}
	return nil
}

// --- attachments ---

const attachmentColumns = `
	id, tenant, docket_entry_id, filename, file_size, content_type,
	storage_key, COALESCE(sha256, ''), uploaded_at, created_at
`

func scanAttachment(row interface{ Scan(...any) error }) (*models.DocketAttachment, error) {
	var a models.DocketAttachment
	var rawID, rawEntryID string
	var uploadedAt sql.NullTime
	err := row.Scan(&rawID, &a.Tenant, &rawEntryID, &a.Filename, &a.FileSize,
		&a.ContentType, &a.StorageKey, &a.SHA256, &uploadedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if a.ID, err = id.ParseAttachmentID(rawID); err != nil {
		return nil, err
	}
	if a.DocketEntryID, err = id.ParseDocketEntryID(rawEntryID); err != nil {
		return nil, err
	}
	if uploadedAt.Valid {
		t := uploadedAt.Time
		a.UploadedAt = &t
	}
	return &a, nil
}

// CreatePendingAttachment inserts an attachment row with uploaded_at null.
func (s *PostgresStore) CreatePendingAttachment(ctx context.Context, a models.DocketAttachment) error {
	query := `
		INSERT INTO docket_attachments
			(id, tenant, docket_entry_id, filename, file_size, content_type,
			 storage_key, sha256, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		a.ID.String(), a.Tenant.String(), a.DocketEntryID.String(), a.Filename,
		a.FileSize, a.ContentType, a.StorageKey, a.SHA256, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// MarkAttachmentUploaded stamps uploaded_at once the object store confirms the
// bytes. Only pending rows transition; repeat finalizes report ErrInvalidState.
func (s *PostgresStore) MarkAttachmentUploaded(ctx context.Context, tenant id.TenantID, attID id.AttachmentID, sha256 string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE docket_attachments
		SET uploaded_at = NOW(), sha256 = COALESCE(NULLIF($3, ''), sha256)
		WHERE tenant = $1 AND id = $2 AND uploaded_at IS NULL
	`, tenant.String(), attID.String(), sha256)
	if err != nil {
		return fmt.Errorf("mark attachment uploaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark attachment uploaded rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark attachment uploaded: %w", sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) FindAttachmentByID(ctx context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.DocketAttachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM docket_attachments WHERE tenant = $1 AND id = $2`
	a, err := scanAttachment(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), attID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find attachment: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return a, nil
}

// ListUploadedAttachments returns confirmed attachments for an entry, newest
// first. Pending rows are invisible here.
func (s *PostgresStore) ListUploadedAttachments(ctx context.Context, tenant id.TenantID, entryID id.DocketEntryID) ([]models.DocketAttachment, error) {
	query := `
		SELECT ` + attachmentColumns + `
		FROM docket_attachments
		WHERE tenant = $1 AND docket_entry_id = $2 AND uploaded_at IS NOT NULL
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenant.String(), entryID.String())
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []models.DocketAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}
