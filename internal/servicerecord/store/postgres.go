package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caseflow/internal/servicerecord/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists per-party service records.
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

const recordColumns = `
	id, tenant, document_id, party_id, service_method, served_by, service_date,
	successful, proof_of_service_filed, attempts, COALESCE(notes, ''),
	COALESCE(certificate_of_service, '')
`

func scanRecord(row interface{ Scan(...any) error }) (*models.ServiceRecord, error) {
	var r models.ServiceRecord
	var rawID, rawDocID, rawPartyID string
	err := row.Scan(&rawID, &r.Tenant, &rawDocID, &rawPartyID, &r.ServiceMethod,
		&r.ServedBy, &r.ServiceDate, &r.Successful, &r.ProofOfServiceFiled,
		&r.Attempts, &r.Notes, &r.CertificateOfService)
	if err != nil {
		return nil, err
	}
	if r.ID, err = id.ParseServiceRecordID(rawID); err != nil {
		return nil, err
	}
	if r.DocumentID, err = id.ParseDocumentID(rawDocID); err != nil {
		return nil, err
	}
	if r.PartyID, err = id.ParsePartyID(rawPartyID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) Create(ctx context.Context, r models.ServiceRecord) error {
	query := `
		INSERT INTO service_records
			(id, tenant, document_id, party_id, service_method, served_by,
			 service_date, successful, proof_of_service_filed, attempts,
			 notes, certificate_of_service)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        NULLIF($11, ''), NULLIF($12, ''))
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		r.ID.String(), r.Tenant.String(), r.DocumentID.String(),
		r.PartyID.String(), r.ServiceMethod, r.ServedBy, r.ServiceDate,
		r.Successful, r.ProofOfServiceFiled, r.Attempts, r.Notes,
		r.CertificateOfService)
	if err != nil {
		return fmt.Errorf("insert service record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenant id.TenantID, recordID id.ServiceRecordID) (*models.ServiceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM service_records WHERE tenant = $1 AND id = $2`
	r, err := scanRecord(s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), recordID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find service record: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find service record: %w", err)
	}
	return r, nil
}

// Complete marks service done and proof filed in one step. Completing an
// already-complete record is a no-op.
func (s *PostgresStore) Complete(ctx context.Context, tenant id.TenantID, recordID id.ServiceRecordID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE service_records
		SET successful = TRUE, proof_of_service_filed = TRUE
		WHERE tenant = $1 AND id = $2
	`, tenant.String(), recordID.String())
	if err != nil {
		return fmt.Errorf("complete service record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete service record rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete service record: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ListByDocument returns records ordered by service date, oldest first.
func (s *PostgresStore) ListByDocument(ctx context.Context, tenant id.TenantID, docID id.DocumentID) ([]models.ServiceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM service_records
		WHERE tenant = $1 AND document_id = $2
		ORDER BY service_date ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenant.String(), docID.String())
	if err != nil {
		return nil, fmt.Errorf("list service records: %w", err)
	}
	defer rows.Close()

	var records []models.ServiceRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service record: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service records: %w", err)
	}
	return records, nil
}

// CountProgress tallies complete records against the total for a document.
func (s *PostgresStore) CountProgress(ctx context.Context, tenant id.TenantID, docID id.DocumentID) (served, total int, err error) {
	err = s.execer(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE successful AND proof_of_service_filed), COUNT(*)
		FROM service_records
		WHERE tenant = $1 AND document_id = $2
	`, tenant.String(), docID.String()).Scan(&served, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count service progress: %w", err)
	}
	return served, total, nil
}
