package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "VALID"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
	TicketStatusExpired   TicketStatus = "EXPIRED"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusValid, TicketStatusUsed, TicketStatusCancelled, TicketStatusExpired:
		return true
	}
	return false
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID                   string       `bun:"id,pk"`
	EventID              int64        `bun:"event_id,notnull"`
	UserID               string       `bun:"user_id"`
	ParticipantFirstName string       `bun:"participant_first_name,notnull"`
	ParticipantLastName  string       `bun:"participant_last_name,notnull"`
	ParticipantEmail     string       `bun:"participant_email,notnull"`
	AudienceZone         string       `bun:"audience_zone"`
	Status               TicketStatus `bun:"status,notnull"`
	IssuedAt             time.Time    `bun:"issued_at,notnull"`
	ValidatedAt          time.Time    `bun:"validated_at,nullzero"`
	ValidatedBy          string       `bun:"validated_by,nullzero"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}

// TicketFilter narrows the management listing of an event's tickets.
type TicketFilter struct {
	Status *TicketStatus
	Search string
}

type ParticipantInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type EventSnapshot struct {
	EventID   int64     `json:"eventId"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	City      string    `json:"city,omitempty"`
}

type TicketResponse struct {
	ID            string          `json:"id"`
	QRCodeValue   string          `json:"qrCodeValue"`
	Status        TicketStatus    `json:"status"`
	Participant   ParticipantInfo `json:"participant"`
	EventSnapshot EventSnapshot   `json:"eventSnapshot"`
	AudienceZone  string          `json:"audienceZone,omitempty"`
	IssuedAt      time.Time       `json:"issuedAt"`
	ValidatedAt   *time.Time      `json:"validatedAt,omitempty"`
}

type TicketValidationResponse struct {
	TicketID    string          `json:"ticketId"`
	Status      TicketStatus    `json:"status"`
	Message     string          `json:"message"`
	Participant ParticipantInfo `json:"participant"`
	ValidatedAt time.Time       `json:"validatedAt"`
}

type TicketScanRequest struct {
	QRCodeValue string `json:"qrCodeValue" validate:"required"`
}

// TicketStatusSummary counts an event's tickets per status.
type TicketStatusSummary struct {
	EventID  int64                `json:"eventId"`
	Total    int                  `json:"total"`
	ByStatus map[TicketStatus]int `json:"byStatus"`
}
