package models

import (
	"strings"
	"time"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// DocketEntry is one numbered line in a case's procedural history.
// entry_number is unique and strictly increasing per (tenant, case).
type DocketEntry struct {
	ID          id.DocketEntryID
	Tenant      id.TenantID
	CaseID      id.CaseID
	EntryNumber int
	EntryType   string
	Description string
	FiledBy     string
	DateFiled   time.Time
	IsSealed    bool
	DocumentID  *id.DocumentID
}

// CreateEntryInput carries everything needed to mint a new entry except the
// entry number, which is allocated transactionally at insert time.
type CreateEntryInput struct {
	CaseID      id.CaseID
	EntryType   string
	Description string
	FiledBy     string
	IsSealed    bool
	DocumentID  *id.DocumentID
}

func (in CreateEntryInput) Validate() error {
	if in.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "case_id is required")
	}
	if strings.TrimSpace(in.EntryType) == "" {
		return dErrors.New(dErrors.CodeValidation, "entry_type is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return dErrors.New(dErrors.CodeValidation, "description must not be empty")
	}
	return nil
}

// DocketAttachment is an ad-hoc file hung off a docket entry. uploaded_at nil
// means the bytes were never confirmed in the object store; pending rows are
// invisible to listings and cannot be promoted or downloaded.
type DocketAttachment struct {
	ID            id.AttachmentID
	Tenant        id.TenantID
	DocketEntryID id.DocketEntryID
	Filename      string
	FileSize      int64
	ContentType   string
	StorageKey    string
	SHA256        string
	UploadedAt    *time.Time
	CreatedAt     time.Time
}

// Uploaded reports whether the object store confirmed the bytes.
func (a DocketAttachment) Uploaded() bool { return a.UploadedAt != nil }
