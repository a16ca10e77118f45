package ticket_api

import (
	"net/http"

	"ms-events/internal/utils"
)

// GetTicketSummary reports how many of the event's tickets are in each status.
func (h *Handler) GetTicketSummary(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "GetTicketSummary", err)
		return
	}
	h.Logger.LogMethodEntry("GetTicketSummary", "eventId", eventID)

	summary, err := h.TicketService.StatusSummary(r.Context(), eventID)
	if err != nil {
		h.fail(w, r, "GetTicketSummary", err)
		return
	}
	h.Logger.LogMethodExit("GetTicketSummary", "eventId", eventID, "total", summary.Total)
	utils.WriteJSON(w, http.StatusOK, summary)
}
