package tickets

import (
	"context"

	"ms-events/internal/models"
)

// StatusSummary counts the event's tickets per status. Every status is
// present in the result, with zero when no ticket has it.
func (s *TicketService) StatusSummary(ctx context.Context, eventID int64) (*models.TicketStatusSummary, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return nil, err
	}
	counts, err := s.DB.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}

	summary := &models.TicketStatusSummary{
		EventID:  eventID,
		ByStatus: make(map[models.TicketStatus]int, 4),
	}
	for _, status := range []models.TicketStatus{
		models.TicketStatusValid,
		models.TicketStatusUsed,
		models.TicketStatusCancelled,
		models.TicketStatusExpired,
	} {
		summary.ByStatus[status] = counts[status]
		summary.Total += counts[status]
	}
	return summary, nil
}
