package models

import (
	"time"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// ServiceRecord tracks formal delivery of a document to one party.
// A record is complete when successful and proof_of_service_filed are both
// true; the pair is only ever set together.
type ServiceRecord struct {
	ID                   id.ServiceRecordID
	Tenant               id.TenantID
	DocumentID           id.DocumentID
	PartyID              id.PartyID
	ServiceMethod        string
	ServedBy             string
	ServiceDate          time.Time
	Successful           bool
	ProofOfServiceFiled  bool
	Attempts             int
	Notes                string
	CertificateOfService string
}

// Complete reports whether service finished with proof on file.
func (r ServiceRecord) Complete() bool {
	return r.Successful && r.ProofOfServiceFiled
}

// ValidServiceMethods matches the parties table's service preference values.
var ValidServiceMethods = []string{
	"Electronic", "Mail", "PersonalService", "Waiver", "Publication",
	"CertifiedMail", "ExpressMail", "ECF", "Other",
}

// ParseServiceMethod validates a service method from external input.
func ParseServiceMethod(s string) (string, error) {
	for _, m := range ValidServiceMethods {
		if m == s {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid service_method "+s)
}

// Progress aggregates completion over all records for a document.
// Percentage is 0 when no records exist.
type Progress struct {
	Served     int     `json:"served"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func NewProgress(served, total int) Progress {
	p := Progress{Served: served, Total: total}
	if total > 0 {
		p.Percentage = float64(served) / float64(total) * 100
	}
	return p
}
