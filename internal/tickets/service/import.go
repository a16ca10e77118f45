package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"ms-events/internal/models"
)

// ImportIssuedTicket stores a ticket announced by the order service. It is
// a kafka.MessageHandler; redelivered messages are ignored.
func (s *TicketService) ImportIssuedTicket(ctx context.Context, msg kafkago.Message) error {
	var issued models.TicketIssuedMessage
	if err := json.Unmarshal(msg.Value, &issued); err != nil {
		return fmt.Errorf("decode issued ticket at offset %d: %w", msg.Offset, err)
	}
	if _, err := uuid.Parse(issued.TicketID); err != nil {
		return fmt.Errorf("issued ticket has invalid id %q", issued.TicketID)
	}
	if strings.TrimSpace(issued.Participant.Email) == "" {
		return fmt.Errorf("issued ticket %s has no participant email", issued.TicketID)
	}
	if err := s.ensureEvent(ctx, issued.EventID); err != nil {
		return fmt.Errorf("issued ticket %s: %w", issued.TicketID, err)
	}

	issuedAt := issued.IssuedAt.UTC()
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	ticket := &models.Ticket{
		ID:                   strings.ToLower(issued.TicketID),
		EventID:              issued.EventID,
		UserID:               issued.UserID,
		ParticipantFirstName: issued.Participant.FirstName,
		ParticipantLastName:  issued.Participant.LastName,
		ParticipantEmail:     issued.Participant.Email,
		AudienceZone:         issued.AudienceZone,
		Status:               models.TicketStatusValid,
		IssuedAt:             issuedAt,
	}

	inserted, err := s.DB.CreateTicket(ctx, ticket)
	if err != nil {
		return err
	}
	if !inserted {
		s.Logger.Debug("TICKET", fmt.Sprintf("Ticket %s already imported", ticket.ID))
		return nil
	}
	s.Logger.Info("TICKET", fmt.Sprintf("Imported ticket %s for event %d", ticket.ID, ticket.EventID))
	return nil
}
