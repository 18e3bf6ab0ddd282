// Package models defines the unified docket event request as a tagged union.
// Each variant carries only its own required fields, so invalid combinations
// are unrepresentable past parsing.
package models

import (
	"strings"

	filingmodels "caseflow/internal/filing/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

type Kind string

const (
	KindTextEntry         Kind = "text_entry"
	KindFiling            Kind = "filing"
	KindPromoteAttachment Kind = "promote_attachment"
)

// Event is one parsed submit_event variant.
type Event interface {
	Kind() Kind
}

// TextEntry creates a plain docket entry with no document.
type TextEntry struct {
	CaseID      id.CaseID
	EntryType   string
	Description string
	FiledBy     string
}

func (TextEntry) Kind() Kind { return KindTextEntry }

// FilingSubmission runs the full atomic filing workflow.
type FilingSubmission struct {
	Request filingmodels.SubmitFilingRequest
}

func (FilingSubmission) Kind() Kind { return KindFiling }

// PromoteAttachment converts an uploaded attachment into a canonical document.
type PromoteAttachment struct {
	AttachmentID id.AttachmentID
	Title        string
	DocumentType string
}

func (PromoteAttachment) Kind() Kind { return KindPromoteAttachment }

// SubmitEventRequest is the wire shape before parsing into a variant.
type SubmitEventRequest struct {
	EventKind string `json:"event_kind"`
	CaseID    string `json:"case_id"`

	// text_entry fields
	EntryType   *string `json:"entry_type,omitempty"`
	Description *string `json:"description,omitempty"`
	FiledBy     *string `json:"filed_by,omitempty"`

	// filing fields
	Title        *string `json:"title,omitempty"`
	DocumentType *string `json:"document_type,omitempty"`
	UploadID     *string `json:"upload_id,omitempty"`
	IsSealed     *bool   `json:"is_sealed,omitempty"`
	SealingLevel *string `json:"sealing_level,omitempty"`
	ReasonCode   *string `json:"reason_code,omitempty"`

	// promote_attachment fields
	AttachmentID        *string `json:"attachment_id,omitempty"`
	PromoteTitle        *string `json:"promote_title,omitempty"`
	PromoteDocumentType *string `json:"promote_document_type,omitempty"`
}

// Parse validates the kind-specific required fields and returns the variant.
func (r SubmitEventRequest) Parse() (Event, error) {
	switch Kind(r.EventKind) {
	case KindTextEntry:
		return r.parseTextEntry()
	case KindFiling:
		return r.parseFiling()
	case KindPromoteAttachment:
		return r.parsePromote()
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown event_kind '"+r.EventKind+"'")
	}
}

func (r SubmitEventRequest) parseTextEntry() (Event, error) {
	caseID, err := id.ParseCaseID(r.CaseID)
	if err != nil {
		return nil, err
	}
	if r.EntryType == nil || strings.TrimSpace(*r.EntryType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entry_type is required for text_entry")
	}
	if r.Description == nil || strings.TrimSpace(*r.Description) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "description is required for text_entry")
	}
	ev := TextEntry{
		CaseID:      caseID,
		EntryType:   strings.TrimSpace(*r.EntryType),
		Description: strings.TrimSpace(*r.Description),
	}
	if r.FiledBy != nil {
		ev.FiledBy = strings.TrimSpace(*r.FiledBy)
	}
	return ev, nil
}

func (r SubmitEventRequest) parseFiling() (Event, error) {
	if r.Title == nil || strings.TrimSpace(*r.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required for filing")
	}
	if r.FiledBy == nil || strings.TrimSpace(*r.FiledBy) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "filed_by is required for filing")
	}
	if r.DocumentType == nil || strings.TrimSpace(*r.DocumentType) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document_type is required for filing")
	}
	req := filingmodels.SubmitFilingRequest{
		CaseID:       r.CaseID,
		DocumentType: strings.TrimSpace(*r.DocumentType),
		Title:        strings.TrimSpace(*r.Title),
		FiledBy:      strings.TrimSpace(*r.FiledBy),
		UploadID:     r.UploadID,
		SealingLevel: r.SealingLevel,
		ReasonCode:   r.ReasonCode,
	}
	if r.IsSealed != nil {
		req.IsSealed = *r.IsSealed
	}
	return FilingSubmission{Request: req}, nil
}

func (r SubmitEventRequest) parsePromote() (Event, error) {
	if r.AttachmentID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "attachment_id is required for promote_attachment")
	}
	attID, err := id.ParseAttachmentID(*r.AttachmentID)
	if err != nil {
		return nil, err
	}
	ev := PromoteAttachment{AttachmentID: attID}
	if r.PromoteTitle != nil {
		ev.Title = strings.TrimSpace(*r.PromoteTitle)
	}
	if r.PromoteDocumentType != nil {
		ev.DocumentType = strings.TrimSpace(*r.PromoteDocumentType)
	}
	return ev, nil
}

// SubmitEventResponse reports what the dispatched workflow produced.
// document_id, filing_id, and nef_id stay null for variants that do not
// create those records.
type SubmitEventResponse struct {
	EventKind     string  `json:"event_kind"`
	DocketEntryID string  `json:"docket_entry_id"`
	EntryNumber   int     `json:"entry_number"`
	DocumentID    *string `json:"document_id"`
	FilingID      *string `json:"filing_id"`
	NefID         *string `json:"nef_id"`
}
