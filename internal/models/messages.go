package models

import "time"

// EventLifecycleMessage is published whenever an event is created, changed or removed.
type EventLifecycleMessage struct {
	Type        string      `json:"type"`
	EventID     int64       `json:"eventId"`
	StructureID int64       `json:"structureId"`
	Status      EventStatus `json:"status,omitempty"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

type TicketValidatedMessage struct {
	TicketID    string    `json:"ticketId"`
	EventID     int64     `json:"eventId"`
	ValidatedBy string    `json:"validatedBy"`
	ValidatedAt time.Time `json:"validatedAt"`
}

// TicketIssuedMessage is consumed from the order service once a ticket is paid for.
type TicketIssuedMessage struct {
	TicketID     string          `json:"ticketId"`
	EventID      int64           `json:"eventId"`
	UserID       string          `json:"userId"`
	Participant  ParticipantInfo `json:"participant"`
	AudienceZone string          `json:"audienceZone"`
	IssuedAt     time.Time       `json:"issuedAt"`
}
