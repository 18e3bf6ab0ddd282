package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresCaseStore reads the case rows the engine consumes. Case CRUD is
// owned elsewhere; Create exists for seeding and tests.
type PostgresCaseStore struct {
	db *sql.DB
}

func NewPostgresCaseStore(db *sql.DB) *PostgresCaseStore {
	return &PostgresCaseStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresCaseStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresCaseStore) FindByID(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (*models.Case, error) {
	query := `
		SELECT id, tenant, case_number, title, status, created_at
		FROM cases
		WHERE tenant = $1 AND id = $2
	`
	var c models.Case
	var rawID string
	err := s.execer(ctx).QueryRowContext(ctx, query, tenant.String(), caseID.String()).
		Scan(&rawID, &c.Tenant, &c.CaseNumber, &c.Title, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find case: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	c.ID, err = id.ParseCaseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan case id: %w", err)
	}
	return &c, nil
}

// Exists reports whether a case belongs to the tenant.
func (s *PostgresCaseStore) Exists(ctx context.Context, tenant id.TenantID, caseID id.CaseID) (bool, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE tenant = $1 AND id = $2`,
		tenant.String(), caseID.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count cases: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresCaseStore) Create(ctx context.Context, c models.Case) error {
	query := `
		INSERT INTO cases (id, tenant, case_number, title, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID.String(), c.Tenant.String(), c.CaseNumber, c.Title, c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// PostgresPartyStore reads party service preferences for a case.
type PostgresPartyStore struct {
	db *sql.DB
}

func NewPostgresPartyStore(db *sql.DB) *PostgresPartyStore {
	return &PostgresPartyStore{db: db}
}

func (s *PostgresPartyStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// ListActiveByCase returns active parties ordered by name for stable
// recipient lists.
func (s *PostgresPartyStore) ListActiveByCase(ctx context.Context, tenant id.TenantID, caseID id.CaseID) ([]models.Party, error) {
	query := `
		SELECT id, tenant, case_id, name, party_type,
		       COALESCE(service_method, ''), COALESCE(email, ''), COALESCE(phone, ''), status
		FROM parties
		WHERE tenant = $1 AND case_id = $2 AND status = 'Active'
		ORDER BY name ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, tenant.String(), caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()

	var parties []models.Party
	for rows.Next() {
		var p models.Party
		var rawID, rawCaseID string
		if err := rows.Scan(&rawID, &p.Tenant, &rawCaseID, &p.Name, &p.PartyType,
			&p.ServiceMethod, &p.Email, &p.Phone, &p.Status); err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		if p.ID, err = id.ParsePartyID(rawID); err != nil {
			return nil, fmt.Errorf("scan party id: %w", err)
		}
		if p.CaseID, err = id.ParseCaseID(rawCaseID); err != nil {
			return nil, fmt.Errorf("scan party case id: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parties: %w", err)
	}
	return parties, nil
}

// Exists reports whether a party belongs to the tenant.
func (s *PostgresPartyStore) Exists(ctx context.Context, tenant id.TenantID, partyID id.PartyID) (bool, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parties WHERE tenant = $1 AND id = $2`,
		tenant.String(), partyID.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count parties: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresPartyStore) Create(ctx context.Context, p models.Party) error {
	query := `
		INSERT INTO parties (id, tenant, case_id, name, party_type, service_method, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID.String(), p.Tenant.String(), p.CaseID.String(), p.Name, p.PartyType,
		p.ServiceMethod, p.Email, p.Phone, p.Status)
	if err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	return nil
}
