package tickets

import (
	"context"
	"fmt"
	"time"

	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/tickets/qr"
)

type TicketDBLayer interface {
	EventExists(ctx context.Context, eventID int64) (bool, error)
	ListEventTickets(ctx context.Context, eventID int64, filter models.TicketFilter, page models.PageRequest) ([]models.Ticket, int, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	MarkTicketUsed(ctx context.Context, id, validatedBy string, at time.Time) (bool, error)
	CreateTicket(ctx context.Context, ticket *models.Ticket) (bool, error)
	CountByStatus(ctx context.Context, eventID int64) (map[models.TicketStatus]int, error)
}

type TicketService struct {
	DB        TicketDBLayer
	QR        *qr.QRGenerator
	Publisher kafka.Publisher
	Topic     string
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewTicketService(db TicketDBLayer, qrGen *qr.QRGenerator, publisher kafka.Publisher, topic string, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:        db,
		QR:        qrGen,
		Publisher: publisher,
		Topic:     topic,
		Logger:    log,
	}
}

func (s *TicketService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TicketService) ensureEvent(ctx context.Context, eventID int64) error {
	exists, err := s.DB.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFound("EVENT_NOT_FOUND", "event %d not found", eventID)
	}
	return nil
}

func (s *TicketService) GetEventTickets(ctx context.Context, eventID int64, filter models.TicketFilter, page models.PageRequest) (*models.PaginatedResponse[models.TicketResponse], error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return nil, err
	}

	tickets, total, err := s.DB.ListEventTickets(ctx, eventID, filter, page)
	if err != nil {
		return nil, err
	}

	items := make([]models.TicketResponse, 0, len(tickets))
	for i := range tickets {
		resp, err := s.toResponse(&tickets[i])
		if err != nil {
			return nil, err
		}
		items = append(items, resp)
	}
	return models.NewPage(items, page, total), nil
}

// eventTicket loads a ticket and hides tickets belonging to other events.
func (s *TicketService) eventTicket(ctx context.Context, eventID int64, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.EventID != eventID {
		return nil, models.NewNotFound("TICKET_NOT_FOUND", "ticket %s not found for event %d", ticketID, eventID)
	}
	return ticket, nil
}

func rejectStatus(ticket *models.Ticket) error {
	switch ticket.Status {
	case models.TicketStatusValid:
		return nil
	case models.TicketStatusUsed:
		return models.NewValidation("TICKET_ALREADY_USED", "ticket %s was already used", ticket.ID)
	default:
		return models.NewValidation("TICKET_NOT_VALID", "ticket %s is %s", ticket.ID, ticket.Status)
	}
}

// ValidateTicket marks a VALID ticket of the event as USED. Validating a
// ticket twice fails with TICKET_ALREADY_USED.
func (s *TicketService) ValidateTicket(ctx context.Context, eventID int64, ticketID, validatorID string) (*models.TicketValidationResponse, error) {
	ticket, err := s.eventTicket(ctx, eventID, ticketID)
	if err != nil {
		return nil, err
	}
	if err := rejectStatus(ticket); err != nil {
		return nil, err
	}

	at := s.now()
	ok, err := s.DB.MarkTicketUsed(ctx, ticket.ID, validatorID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race with another validation
		current, err := s.DB.GetTicketByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		if err := rejectStatus(current); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("ticket %s could not be marked used", ticket.ID)
	}

	s.Logger.Info("TICKET", fmt.Sprintf("Ticket %s of event %d validated by %s", ticket.ID, eventID, validatorID))
	s.publishValidated(ctx, ticket, validatorID, at)

	return &models.TicketValidationResponse{
		TicketID:    ticket.ID,
		Status:      models.TicketStatusUsed,
		Message:     "Ticket validated successfully",
		Participant: participant(ticket),
		ValidatedAt: at,
	}, nil
}

// ValidateScannedTicket validates the ticket sealed in a scanned QR code value.
func (s *TicketService) ValidateScannedTicket(ctx context.Context, eventID int64, qrValue, validatorID string) (*models.TicketValidationResponse, error) {
	ref, err := s.QR.Open(qrValue)
	if err != nil {
		return nil, err
	}
	if ref.EventID != eventID {
		return nil, models.NewNotFound("TICKET_NOT_FOUND", "ticket %s not found for event %d", ref.TicketID, eventID)
	}
	return s.ValidateTicket(ctx, eventID, ref.TicketID, validatorID)
}

// TicketQRCode renders the PNG QR code of a ticket.
func (s *TicketService) TicketQRCode(ctx context.Context, eventID int64, ticketID string) ([]byte, error) {
	ticket, err := s.eventTicket(ctx, eventID, ticketID)
	if err != nil {
		return nil, err
	}
	value, err := s.QR.Seal(qr.Reference{TicketID: ticket.ID, EventID: ticket.EventID})
	if err != nil {
		return nil, fmt.Errorf("seal ticket %s: %w", ticket.ID, err)
	}
	png, err := s.QR.PNG(value)
	if err != nil {
		return nil, fmt.Errorf("render QR of ticket %s: %w", ticket.ID, err)
	}
	return png, nil
}

func (s *TicketService) toResponse(t *models.Ticket) (models.TicketResponse, error) {
	value, err := s.QR.Seal(qr.Reference{TicketID: t.ID, EventID: t.EventID})
	if err != nil {
		return models.TicketResponse{}, fmt.Errorf("seal ticket %s: %w", t.ID, err)
	}
	resp := models.TicketResponse{
		ID:           t.ID,
		QRCodeValue:  value,
		Status:       t.Status,
		Participant:  participant(t),
		AudienceZone: t.AudienceZone,
		IssuedAt:     t.IssuedAt,
	}
	resp.EventSnapshot.EventID = t.EventID
	if t.Event != nil {
		resp.EventSnapshot.Name = t.Event.Name
		resp.EventSnapshot.StartDate = t.Event.StartDate
		resp.EventSnapshot.City = t.Event.Address.City
	}
	if !t.ValidatedAt.IsZero() {
		validatedAt := t.ValidatedAt
		resp.ValidatedAt = &validatedAt
	}
	return resp, nil
}

func participant(t *models.Ticket) models.ParticipantInfo {
	return models.ParticipantInfo{
		FirstName: t.ParticipantFirstName,
		LastName:  t.ParticipantLastName,
		Email:     t.ParticipantEmail,
	}
}

func (s *TicketService) publishValidated(ctx context.Context, t *models.Ticket, validatorID string, at time.Time) {
	if s.Publisher == nil {
		return
	}
	msg := models.TicketValidatedMessage{
		TicketID:    t.ID,
		EventID:     t.EventID,
		ValidatedBy: validatorID,
		ValidatedAt: at,
	}
	if err := kafka.PublishJSON(ctx, s.Publisher, s.Topic, t.ID, msg); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish validation of ticket %s: %v", t.ID, err))
	}
}
