package models

import (
	"encoding/json"
	"time"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// SealingLevel is the access-restriction tier on a document.
type SealingLevel string

const (
	SealingPublic           SealingLevel = "Public"
	SealingCourtOnly        SealingLevel = "SealedCourtOnly"
	SealingCaseParticipants SealingLevel = "SealedCaseParticipants"
	SealingAttorneysOnly    SealingLevel = "SealedAttorneysOnly"
)

// ParseSealingLevel validates a sealing level from external input.
func ParseSealingLevel(s string) (SealingLevel, error) {
	switch SealingLevel(s) {
	case SealingPublic, SealingCourtOnly, SealingCaseParticipants, SealingAttorneysOnly:
		return SealingLevel(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidState, "invalid sealing level "+s)
	}
}

// Sealed reports whether the level restricts access at all.
func (l SealingLevel) Sealed() bool { return l != SealingPublic && l != "" }

// DocumentStatus tracks whether a document remains part of the record.
type DocumentStatus string

const (
	StatusActive   DocumentStatus = "Active"
	StatusStricken DocumentStatus = "Stricken"
)

// ValidDocumentTypes is the allowed set for filings and promotions.
var ValidDocumentTypes = []string{
	"Motion", "Order", "Brief", "Memorandum", "Declaration", "Affidavit",
	"Exhibit", "Transcript", "Notice", "Subpoena", "Warrant", "Indictment",
	"Plea Agreement", "Judgment", "Verdict", "Other",
}

func IsValidDocumentType(t string) bool {
	for _, v := range ValidDocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Document is the canonical court record for a file. Content is never mutated
// in place: replace creates a new row pointing back via Supersedes.
type Document struct {
	ID                 id.DocumentID
	Tenant             id.TenantID
	CaseID             id.CaseID
	Title              string
	DocumentType       string
	StorageKey         string
	FileSize           int64
	ContentType        string
	Checksum           string
	SealingLevel       SealingLevel
	SealReasonCode     string
	SealMotionID       string
	Status             DocumentStatus
	UploadedBy         string
	SourceAttachmentID *id.AttachmentID
	Supersedes         *id.DocumentID
	CreatedAt          time.Time
}

func (d Document) Sealed() bool   { return d.SealingLevel.Sealed() }
func (d Document) Stricken() bool { return d.Status == StatusStricken }

// Document event types. The event log is append-only and is the audit source
// of truth for lifecycle mutations.
const (
	EventSealed   = "sealed"
	EventUnsealed = "unsealed"
	EventStricken = "stricken"
	EventReplaced = "replaced"
)

type DocumentEvent struct {
	ID         int64
	Tenant     id.TenantID
	DocumentID id.DocumentID
	EventType  string
	Actor      string
	Detail     json.RawMessage
	CreatedAt  time.Time
}
