package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"caseflow/internal/document/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists documents and their append-only event log.
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

const documentColumns = `
	id, tenant, case_id, title, document_type, storage_key, file_size,
	content_type, COALESCE(checksum, ''), sealing_level,
	COALESCE(seal_reason_code, ''), COALESCE(seal_motion_id, ''), status,
	uploaded_by, source_attachment_id, supersedes, created_at
`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	var rawID, rawCaseID string
	var rawAttID, rawSupersedes sql.NullString
	err := row.Scan(&rawID, &d.Tenant, &rawCaseID, &d.Title, &d.DocumentType,
		&d.StorageKey, &d.FileSize, &d.ContentType, &d.Checksum, &d.SealingLevel,
		&d.SealReasonCode, &d.SealMotionID, &d.Status, &d.UploadedBy,
		&rawAttID, &rawSupersedes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	if d.ID, err = id.ParseDocumentID(rawID); err != nil {
		return nil, err
	}
	if d.CaseID, err = id.ParseCaseID(rawCaseID); err != nil {
		return nil, err
	}
	if rawAttID.Valid {
		attID, err := id.ParseAttachmentID(rawAttID.String)
		if err != nil {
			return nil, err
		}
		d.SourceAttachmentID = &attID
	}
	if rawSupersedes.Valid {
		prev, err := id.ParseDocumentID(rawSupersedes.String)
		if err != nil {
			return nil, err
		}
		d.Supersedes = &prev
	}
	return &d, nil
}

// Create inserts a document. The partial unique index on
// (tenant, source_attachment_id) makes concurrent promotions of one attachment
// collide here; the violation surfaces as ErrConflict so the caller can fetch
// the winner instead of failing.
func (s *PostgresStore) Create(ctx context.Context, d models.Document) error {
	query := `
		INSERT INTO documents
			(id, tenant, case_id, title, document_type, storage_key, file_size,
			 content_type, checksum, sealing_level, seal_reason_code,
			 seal_motion_id, status, uploaded_by, source_attachment_id,
			 supersedes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10,
		        NULLIF($11, ''), NULLIF($12, ''), $13, $14, $15, $16, $17)
	`
	var attID, supersedes any
	if d.SourceAttachmentID != nil {
		attID = d.SourceAttachmentID.String()
	}
	if d.Supersedes != nil {
		supersedes = d.Supersedes.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		d.ID.String(), d.Tenant.String(), d.CaseID.String(), d.Title,
		d.DocumentType, d.StorageKey, d.FileSize, d.ContentType, d.Checksum,
		string(d.SealingLevel), d.SealReasonCode, d.SealMotionID,
		string(d.Status), d.UploadedBy, attID, supersedes, d.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert document: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant = $1 AND id = $2`
	d, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), docID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find document: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindBySourceAttachment(ctx context.Context, tenant id.TenantID, attID id.AttachmentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant = $1 AND source_attachment_id = $2`
	d, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), attID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find document by attachment: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document by attachment: %w", err)
	}
	return d, nil
}

// FindReplacement returns the document that superseded the given one, if any.
func (s *PostgresStore) FindReplacement(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant = $1 AND supersedes = $2`
	d, err := scanDocument(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), docID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find replacement: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find replacement: %w", err)
	}
	return d, nil
}

// SetSealing applies a seal. Re-sealing overwrites the previous level.
func (s *PostgresStore) SetSealing(ctx context.Context, tenant id.TenantID, docID id.DocumentID, level models.SealingLevel, reasonCode, motionID string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE documents
		SET sealing_level = $3, seal_reason_code = NULLIF($4, ''), seal_motion_id = NULLIF($5, '')
		WHERE tenant = $1 AND id = $2
	`, tenant.String(), docID.String(), string(level), reasonCode, motionID)
	if err != nil {
		return fmt.Errorf("seal document: %w", err)
	}
	return requireRow(res, "seal document")
}

// ClearSealing returns a document to public access and clears the reason.
func (s *PostgresStore) ClearSealing(ctx context.Context, tenant id.TenantID, docID id.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE documents
		SET sealing_level = 'Public', seal_reason_code = NULL, seal_motion_id = NULL
		WHERE tenant = $1 AND id = $2
	`, tenant.String(), docID.String())
	if err != nil {
		return fmt.Errorf("unseal document: %w", err)
	}
	return requireRow(res, "unseal document")
}

// SetStatus transitions the document's record status.
func (s *PostgresStore) SetStatus(ctx context.Context, tenant id.TenantID, docID id.DocumentID, status models.DocumentStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE documents SET status = $3 WHERE tenant = $1 AND id = $2`,
		tenant.String(), docID.String(), string(status))
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, "update document status")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

// AppendEvent writes one row to the append-only document event log.
func (s *PostgresStore) AppendEvent(ctx context.Context, ev models.DocumentEvent) error {
	detail := ev.Detail
	if detail == nil {
		detail = json.RawMessage(`{}`)
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO document_events (tenant, document_id, event_type, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.Tenant.String(), ev.DocumentID.String(), ev.EventType, ev.Actor, []byte(detail), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document event: %w", err)
	}
	return nil
}

// ListEventsByDocument returns a document's audit trail oldest first.
func (s *PostgresStore) ListEventsByDocument(ctx context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.DocumentEvent, error) {
	query := `
		SELECT id, tenant, document_id, event_type, actor, detail, created_at
		FROM document_events
		WHERE tenant = $1 AND document_id = $2
		ORDER BY created_at ASC, id ASC
	`
	return s.queryEvents(ctx, query, tenant.String(), docID.String())
}

// ListEventsByCase returns all document events for a case, for the timeline.
func (s *PostgresStore) ListEventsByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.DocumentEvent, error) {
	query := `
		SELECT e.id, e.tenant, e.document_id, e.event_type, e.actor, e.detail, e.created_at
		FROM document_events e
		JOIN documents d ON d.id = e.document_id AND d.tenant = e.tenant
		WHERE e.tenant = $1 AND d.case_id = $2
		ORDER BY e.created_at ASC, e.id ASC
	`
	return s.queryEvents(ctx, query, tenant.String(), caseID.String())
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]models.DocumentEvent, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list document events: %w", err)
	}
	defer rows.Close()

	var events []models.DocumentEvent
	for rows.Next() {
		var ev models.DocumentEvent
		var rawDocID string
		var detail []byte
		if err := rows.Scan(&ev.ID, &ev.Tenant, &rawDocID, &ev.EventType, &ev.Actor, &detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document event: %w", err)
		}
		if ev.DocumentID, err = id.ParseDocumentID(rawDocID); err != nil {
			return nil, fmt.Errorf("scan document event id: %w", err)
		}
		ev.Detail = json.RawMessage(detail)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document events: %w", err)
	}
	return events, nil
}
