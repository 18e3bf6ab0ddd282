package models

import (
	"time"

	id "caseflow/pkg/domain"
)

// Recipient is one party entitled to notice of a filing. Contact details ride
// along for the audit trail even when service is not electronic.
type Recipient struct {
	PartyID       id.PartyID `json:"party_id"`
	Name          string     `json:"name"`
	ServiceMethod string     `json:"service_method"`
	Electronic    bool       `json:"electronic"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
}

// Nef is a Notice of Electronic Filing. At most one exists per filing, and it
// is immutable once created: the HTML snapshot is a point-in-time record that
// is never re-rendered when the underlying document changes.
type Nef struct {
	ID            id.NefID
	Tenant        id.TenantID
	FilingID      id.FilingID
	DocumentID    id.DocumentID
	CaseID        id.CaseID
	DocketEntryID id.DocketEntryID
	Recipients    []Recipient
	HTMLSnapshot  string
	CreatedAt     time.Time
}
