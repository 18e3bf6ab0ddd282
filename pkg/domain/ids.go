package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "caseflow/pkg/domain-errors"
)

// Typed identifiers for the filing and docket engine. Each wraps a UUID so the
// compiler rejects cross-entity mixups (passing a FilingID where a DocumentID
// is expected). Construct via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
type (
	CaseID          uuid.UUID
	DocumentID      uuid.UUID
	DocketEntryID   uuid.UUID
	FilingID        uuid.UUID
	NefID           uuid.UUID
	AttachmentID    uuid.UUID
	UploadID        uuid.UUID
	PartyID         uuid.UUID
	ServiceRecordID uuid.UUID
)

// TenantID is the court/district partition key. It is an opaque non-empty
// string (e.g. "nd-cal"), not a UUID, and scopes every read and write.
type TenantID string

// ParseTenantID validates a tenant identifier from external input.
func ParseTenantID(s string) (TenantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "tenant is required")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "tenant must be 64 characters or less")
	}
	return TenantID(s), nil
}

func (t TenantID) String() string { return string(t) }

// IsNil reports whether the tenant is unset.
func (t TenantID) IsNil() bool { return t == "" }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" cannot be the nil UUID")
	}
	return u, nil
}

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case_id")
	return CaseID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

func ParseDocketEntryID(s string) (DocketEntryID, error) {
	u, err := parseUUID(s, "docket_entry_id")
	return DocketEntryID(u), err
}

func ParseFilingID(s string) (FilingID, error) {
	u, err := parseUUID(s, "filing_id")
	return FilingID(u), err
}

func ParseNefID(s string) (NefID, error) {
	u, err := parseUUID(s, "nef_id")
	return NefID(u), err
}

func ParseAttachmentID(s string) (AttachmentID, error) {
	u, err := parseUUID(s, "attachment_id")
	return AttachmentID(u), err
}

func ParseUploadID(s string) (UploadID, error) {
	u, err := parseUUID(s, "upload_id")
	return UploadID(u), err
}

func ParsePartyID(s string) (PartyID, error) {
	u, err := parseUUID(s, "party_id")
	return PartyID(u), err
}

func ParseServiceRecordID(s string) (ServiceRecordID, error) {
	u, err := parseUUID(s, "service_record_id")
	return ServiceRecordID(u), err
}

func (id CaseID) String() string          { return uuid.UUID(id).String() }
func (id DocumentID) String() string      { return uuid.UUID(id).String() }
func (id DocketEntryID) String() string   { return uuid.UUID(id).String() }
func (id FilingID) String() string        { return uuid.UUID(id).String() }
func (id NefID) String() string           { return uuid.UUID(id).String() }
func (id AttachmentID) String() string    { return uuid.UUID(id).String() }
func (id UploadID) String() string        { return uuid.UUID(id).String() }
func (id PartyID) String() string         { return uuid.UUID(id).String() }
func (id ServiceRecordID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DocketEntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id FilingID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NefID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id AttachmentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id UploadID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PartyID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ServiceRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewCaseID and friends mint fresh identifiers. Kept next to the types so
// callers never reach for uuid.New directly.
func NewCaseID() CaseID                   { return CaseID(uuid.New()) }
func NewDocumentID() DocumentID           { return DocumentID(uuid.New()) }
func NewDocketEntryID() DocketEntryID     { return DocketEntryID(uuid.New()) }
func NewFilingID() FilingID               { return FilingID(uuid.New()) }
func NewNefID() NefID                     { return NefID(uuid.New()) }
func NewAttachmentID() AttachmentID       { return AttachmentID(uuid.New()) }
func NewUploadID() UploadID               { return UploadID(uuid.New()) }
func NewPartyID() PartyID                 { return PartyID(uuid.New()) }
func NewServiceRecordID() ServiceRecordID { return ServiceRecordID(uuid.New()) }
