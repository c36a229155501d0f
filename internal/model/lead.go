// Package model holds the lead records shared by the store, the runner and the exporters.
package model

import "time"

// LeadStatus is the outreach tier recorded on a lead.
type LeadStatus string

const (
	StatusUnset     LeadStatus = ""
	StatusRed       LeadStatus = "RED"
	StatusYellow    LeadStatus = "YELLOW"
	StatusHighValue LeadStatus = "GOLD_LEAD"
)

// DefaultCandidateStatuses are the tiers eligible for (re-)enrichment.
func DefaultCandidateStatuses() []LeadStatus {
	return []LeadStatus{StatusRed, StatusYellow, StatusUnset}
}

// Lead is a company under enrichment as stored by the lead store.
type Lead struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	WebsiteURL   string     `json:"website_url"`
	Domain       string     `json:"domain,omitempty"`
	ContactName  string     `json:"contact_name,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	Status       LeadStatus `json:"status"`
}

// HighValue reports whether the lead has been promoted.
func (l Lead) HighValue() bool {
	return l.Status == StatusHighValue
}

// ContactUpdate is a structured write of contact fields. Nil fields are left
// untouched; Promote moves the lead to StatusHighValue.
type ContactUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	Promote bool
}

// Empty reports whether the update would change nothing.
func (u ContactUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && !u.Promote
}

// StringPtr returns nil for an empty string, else a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RunRecord is the persisted summary of one enrichment batch.
type RunRecord struct {
	ID          string    `json:"id"`
	Processed   int       `json:"processed"`
	HighValue   int       `json:"high_value"`
	Partial     int       `json:"partial"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	StoreErrors int       `json:"store_errors"`
	Exported    bool      `json:"exported"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
