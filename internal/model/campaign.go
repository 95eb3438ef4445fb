// internal/model/campaign.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Campaign lifecycle statuses
const (
	StatusPending         = "pending"
	StatusStarted         = "started"
	StatusInProgress      = "in_progress"
	StatusPaused          = "paused"
	StatusCompleted       = "completed"
	StatusFailed          = "failed"
	StatusProcessingError = "processing_error"
)

// Contact source strategies
const (
	SourceChatwootLabel    = "chatwoot_label"
	SourceChatwootAll      = "chatwoot_all"
	SourceInstanceContacts = "instance_contacts"
	SourceManual           = "manual"
)

// Campaign is the full persisted document, one per campaign.
// The store always writes it whole; partial patches do not exist.
type Campaign struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	MessageTemplate     string    `json:"messageTemplate"`
	InstanceName        string    `json:"instanceName"`
	ContactSource       string    `json:"contactSource"`
	ChatwootLabel       string    `json:"chatwootLabel,omitempty"`
	MultimediaURL       string    `json:"multimediaUrl,omitempty"`
	SendIntervalSeconds int       `json:"sendIntervalSeconds"`
	Status              string    `json:"status"`
	LastError           string    `json:"error,omitempty"`
	Contacts            []Contact `json:"contacts"`
	Summary             Summary   `json:"summary"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Summary mirrors the live contact counts; Sent+Failed+Pending == TotalContacts.
type Summary struct {
	TotalContacts int `json:"totalContacts"`
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
	Pending       int `json:"pending"`
}

// NewCampaignID builds an opaque id: unix millis plus a random suffix.
func NewCampaignID() string {
	return fmt.Sprintf("camp_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// PendingContacts counts contacts still waiting to be attempted.
func (c *Campaign) PendingContacts() int {
	n := 0
	for i := range c.Contacts {
		if c.Contacts[i].Status == ContactStatusPending {
			n++
		}
	}
	return n
}

// RecomputeSummary rebuilds the denormalized counters from the contact list.
func (c *Campaign) RecomputeSummary() {
	s := Summary{TotalContacts: len(c.Contacts)}
	for i := range c.Contacts {
		switch c.Contacts[i].Status {
		case ContactStatusSent:
			s.Sent++
		case ContactStatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	c.Summary = s
}
