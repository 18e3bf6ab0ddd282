package models

import (
	"time"

	docmodels "caseflow/internal/document/models"
	id "caseflow/pkg/domain"
)

// Filing links one submission's case, document, and docket entry together.
// Exactly one Filing exists per successful submission.
type Filing struct {
	ID            id.FilingID
	Tenant        id.TenantID
	CaseID        id.CaseID
	FilingType    string
	FiledBy       string
	FiledDate     time.Time
	Status        string
	DocumentID    id.DocumentID
	DocketEntryID id.DocketEntryID
	CreatedAt     time.Time
}

// StatusFiled is the only status the engine writes; rejection happens before
// any row exists.
const StatusFiled = "Filed"

// FilingUpload stages bytes ahead of submission. uploaded_at nil means the
// object store never confirmed the file; pending uploads cannot back a filing.
type FilingUpload struct {
	ID          id.UploadID
	Tenant      id.TenantID
	Filename    string
	FileSize    int64
	ContentType string
	StorageKey  string
	SHA256      string
	UploadedAt  *time.Time
	CreatedAt   time.Time
}

func (u FilingUpload) Uploaded() bool { return u.UploadedAt != nil }

// SubmitFilingRequest is the wire shape for both validate and submit.
type SubmitFilingRequest struct {
	CaseID       string  `json:"case_id"`
	DocumentType string  `json:"document_type"`
	Title        string  `json:"title"`
	FiledBy      string  `json:"filed_by"`
	UploadID     *string `json:"upload_id,omitempty"`
	IsSealed     bool    `json:"is_sealed,omitempty"`
	SealingLevel *string `json:"sealing_level,omitempty"`
	ReasonCode   *string `json:"reason_code,omitempty"`
}

// ValidationIssue is one field-level finding from validate.
type ValidationIssue struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type ValidateFilingResponse struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// NefSummary is the slice of the generated notice returned with a submission.
type NefSummary struct {
	NefID        id.NefID `json:"nef_id"`
	CaseNumber   string   `json:"case_number"`
	Title        string   `json:"title"`
	FiledBy      string   `json:"filed_by"`
	FiledDate    string   `json:"filed_date"`
	DocketNumber int      `json:"docket_number"`
}

// SubmissionResult is everything a successful submit produced.
type SubmissionResult struct {
	Filing        Filing
	Document      docmodels.Document
	DocketEntryID id.DocketEntryID
	EntryNumber   int
	Nef           NefSummary
}

// EntryTypeForDocument maps a document type to its docket entry type.
func EntryTypeForDocument(docType string) string {
	switch docType {
	case "Motion", "Brief", "Memorandum":
		return "motion"
	case "Order":
		return "order"
	case "Declaration", "Affidavit", "Exhibit":
		return "exhibit"
	case "Transcript":
		return "transcript"
	case "Notice":
		return "notice"
	case "Subpoena":
		return "subpoena"
	case "Indictment":
		return "indictment"
	case "Judgment":
		return "judgment"
	case "Verdict":
		return "verdict"
	default:
		return "other"
	}
}

// FilingTypeForDocument maps a document type onto the filings type taxonomy.
func FilingTypeForDocument(docType string) string {
	switch docType {
	case "Motion", "Brief", "Memorandum":
		return "Motion"
	case "Declaration", "Affidavit":
		return "Certificate"
	case "Exhibit":
		return "Exhibit"
	case "Notice":
		return "Notice"
	case "Indictment", "Plea Agreement":
		return "Initial"
	case "Transcript":
		return "Supplement"
	default:
		return "Other"
	}
}
