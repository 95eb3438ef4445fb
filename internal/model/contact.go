// internal/model/contact.go
package model

import "time"

// Per-contact send statuses
const (
	ContactStatusPending = "pending"
	ContactStatusSent    = "sent"
	ContactStatusFailed  = "failed"
)

// Contact is one recipient inside a campaign document. Order in the
// contacts slice is send order and is never changed after resolution.
type Contact struct {
	ID        string     `json:"id"`
	Phone     string     `json:"phone"`
	FirstName string     `json:"nombre_cliente"`
	LastName  string     `json:"apellido_cliente"`
	Email     string     `json:"email,omitempty"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}
