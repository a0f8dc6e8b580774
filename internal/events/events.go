package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the certificate service.
const (
	EventCertificateIssued   = "certificate.issued"
	EventCertificateVerified = "certificate.verified"
	EventCertificateClaimed  = "certificate.claimed"
	EventCertificateRevoked  = "certificate.revoked"
	EventUserRegistered      = "user.registered"
	EventUserDeleted         = "user.deleted"
)

// Event is the envelope all published events share.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent wraps a payload in the standard envelope.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "certificate-service",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// EventPublisher abstracts the message transport. Implementations must be
// safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// CertificateIssuedEvent is the payload for EventCertificateIssued.
type CertificateIssuedEvent struct {
	CertificateID   uint   `json:"certificate_id"`
	RefNo           string `json:"ref_no"`
	HolderName      string `json:"holder_name"`
	HolderEmail     string `json:"holder_email"`
	Course          string `json:"course"`
	VerificationURL string `json:"verification_url"`
	PDFPath         string `json:"pdf_path"`
}

// CertificateVerifiedEvent is the payload for EventCertificateVerified.
type CertificateVerifiedEvent struct {
	RefNo             string `json:"ref_no"`
	Verified          bool   `json:"verified"`
	VerificationCount int64  `json:"verification_count"`
	IPAddress         string `json:"ip_address,omitempty"`
}

// CertificateClaimedEvent is the payload for EventCertificateClaimed.
type CertificateClaimedEvent struct {
	RefNo  string `json:"ref_no"`
	UserID uint   `json:"user_id"`
}

// UserRegisteredEvent is the payload for EventUserRegistered.
type UserRegisteredEvent struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}
