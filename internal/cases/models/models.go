// Package models holds the minimal case and party read models the engine
// consumes. Case and party management itself lives outside the engine; these
// rows are read for NEF case numbers and service-record seeding only.
package models

import (
	"time"

	id "caseflow/pkg/domain"
)

type Case struct {
	ID         id.CaseID
	Tenant     id.TenantID
	CaseNumber string
	Title      string
	Status     string
	CreatedAt  time.Time
}

// Party carries the service-of-process preferences for one case participant.
type Party struct {
	ID            id.PartyID
	Tenant        id.TenantID
	CaseID        id.CaseID
	Name          string
	PartyType     string
	ServiceMethod string
	Email         string
	Phone         string
	Status        string
}

// EffectiveServiceMethod defaults unset preferences to electronic service.
func (p Party) EffectiveServiceMethod() string {
	if p.ServiceMethod == "" {
		return "Electronic"
	}
	return p.ServiceMethod
}

// IsElectronic reports whether service to this party completes automatically.
func (p Party) IsElectronic() bool {
	return p.EffectiveServiceMethod() == "Electronic"
}
