package models

import (
	"encoding/json"
	"time"

	id "caseflow/pkg/domain"
)

// OutboxMessage is one pending delivery notification. Rows are appended in
// the same transaction as the state change they announce and published by the
// relay worker afterwards, so a crash between commit and publish loses
// nothing.
type OutboxMessage struct {
	ID          int64
	Tenant      id.TenantID
	Key         string
	Payload     json.RawMessage
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NefDelivery is the payload published when a notice of electronic filing is
// ready to fan out to its recipients.
type NefDelivery struct {
	NefID         string `json:"nef_id"`
	Tenant        string `json:"tenant"`
	FilingID      string `json:"filing_id"`
	CaseID        string `json:"case_id"`
	DocketEntryID string `json:"docket_entry_id"`
	Recipients    int    `json:"recipients"`
	CreatedAt     string `json:"created_at"`
}
