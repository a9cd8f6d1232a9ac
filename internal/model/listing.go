// Package model defines the core domain types shared across the pipeline.
package model

import "time"

// Listing is one property record from the upstream source, keyed by a stable
// identifier. Listings are immutable once handed to the pipeline.
type Listing struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	AgentName   string `json:"agent_name"`
	BrokerName  string `json:"broker_name,omitempty"`
	Description string `json:"description"`
	DetailURL   string `json:"detail_url"`
}

// Contact holds an agent's discovered contact details. Either field may be empty.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Empty reports whether no usable contact field is present.
func (c Contact) Empty() bool {
	return c.Phone == "" && c.Email == ""
}

// Lead is a listing that passed qualification and has a resolved contact.
type Lead struct {
	Listing Listing `json:"listing"`
	Contact Contact `json:"contact"`
}

// Outcome is the terminal state of one listing's pass through the pipeline.
type Outcome string

const (
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeDisqualified  Outcome = "disqualified"
	OutcomeUncontactable Outcome = "uncontactable"
	OutcomeNotified      Outcome = "notified"
	OutcomeNotifyFailed  Outcome = "notify_failed"
	OutcomeError         Outcome = "error"
)

// LedgerRow is one append-only audit record for a notified lead.
type LedgerRow struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	AgentName string    `json:"agent_name"`
	DetailURL string    `json:"detail_url"`
}

// BatchStats summarizes one batch invocation for logging and the webhook response.
type BatchStats struct {
	Received      int `json:"received"`
	Duplicates    int `json:"duplicates"`
	Disqualified  int `json:"disqualified"`
	Uncontactable int `json:"uncontactable"`
	Notified      int `json:"notified"`
	NotifyFailed  int `json:"notify_failed"`
	Errors        int `json:"errors"`
}
