package ticket_api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/authz"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	ticketdb "ms-events/internal/tickets/db"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

type TicketService interface {
	GetEventTickets(ctx context.Context, eventID int64, filter models.TicketFilter, page models.PageRequest) (*models.PaginatedResponse[models.TicketResponse], error)
	ValidateTicket(ctx context.Context, eventID int64, ticketID, validatorID string) (*models.TicketValidationResponse, error)
	ValidateScannedTicket(ctx context.Context, eventID int64, qrValue, validatorID string) (*models.TicketValidationResponse, error)
	TicketQRCode(ctx context.Context, eventID int64, ticketID string) ([]byte, error)
	StatusSummary(ctx context.Context, eventID int64) (*models.TicketStatusSummary, error)
}

type Handler struct {
	TicketService TicketService
	Validator     *validation.Validator
	Guard         *authz.Guard
	Logger        *logger.Logger
	Pagination    config.PaginationConfig
}

func NewHandler(svc TicketService, guard *authz.Guard, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: svc,
		Validator:     validation.New(),
		Guard:         guard,
		Logger:        log,
		Pagination:    cfg.Pagination,
	}
}

// RegisterRoutes mounts the ticket management routes. Every route requires
// the caller to manage the event's tickets.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events/{eventId}/management/tickets", func(r chi.Router) {
		r.Use(authz.Require(h.Logger, h.Guard.ManagesEventTickets("eventId")))
		r.Get("/", h.ListTickets)
		r.Get("/summary", h.GetTicketSummary)
		r.Post("/scan", h.ScanTicket)
		r.Post("/{ticketId}/validate", h.ValidateTicket)
		r.Get("/{ticketId}/qr", h.GetTicketQRCode)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, method string, err error) {
	if utils.StatusFor(err) == http.StatusInternalServerError {
		h.Logger.LogException(method, err)
	} else {
		h.Logger.Debug("API", fmt.Sprintf("%s rejected with %s: %v", method, models.ErrorCode(err), err))
	}
	utils.WriteError(w, r, err)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "ListTickets", err)
		return
	}
	h.Logger.LogMethodEntry("ListTickets", "eventId", eventID, "query", r.URL.RawQuery)

	filter := models.TicketFilter{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TicketStatus(strings.ToUpper(raw))
		if !status.Valid() {
			h.fail(w, r, "ListTickets", models.NewValidation("INVALID_QUERY_PARAMETER", "invalid status: %q", raw))
			return
		}
		filter.Status = &status
	}
	page, err := utils.ParsePageable(r, ticketdb.SortColumns, ticketdb.DefaultSort, h.Pagination.DefaultSize, h.Pagination.MaxSize)
	if err != nil {
		h.fail(w, r, "ListTickets", err)
		return
	}

	result, err := h.TicketService.GetEventTickets(r.Context(), eventID, filter, page)
	if err != nil {
		h.fail(w, r, "ListTickets", err)
		return
	}
	h.Logger.LogMethodExit("ListTickets", "eventId", eventID, "items", len(result.Items))
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "ValidateTicket", err)
		return
	}
	ticketID, err := utils.PathUUID(r, "ticketId")
	if err != nil {
		h.fail(w, r, "ValidateTicket", err)
		return
	}
	validator := auth.UserID(r.Context())
	h.Logger.LogMethodEntry("ValidateTicket", "eventId", eventID, "ticketId", ticketID, "by", validator)

	resp, err := h.TicketService.ValidateTicket(r.Context(), eventID, ticketID.String(), validator)
	if err != nil {
		h.fail(w, r, "ValidateTicket", err)
		return
	}
	h.Logger.LogMethodExit("ValidateTicket", "ticketId", resp.TicketID, "status", resp.Status)
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "ScanTicket", err)
		return
	}
	validator := auth.UserID(r.Context())
	h.Logger.LogMethodEntry("ScanTicket", "eventId", eventID, "by", validator)

	var req models.TicketScanRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "ScanTicket", err)
		return
	}
	if err := h.Validator.ValidateStruct(req); err != nil {
		h.fail(w, r, "ScanTicket", err)
		return
	}

	resp, err := h.TicketService.ValidateScannedTicket(r.Context(), eventID, strings.TrimSpace(req.QRCodeValue), validator)
	if err != nil {
		h.fail(w, r, "ScanTicket", err)
		return
	}
	h.Logger.LogMethodExit("ScanTicket", "ticketId", resp.TicketID)
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTicketQRCode(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "GetTicketQRCode", err)
		return
	}
	ticketID, err := utils.PathUUID(r, "ticketId")
	if err != nil {
		h.fail(w, r, "GetTicketQRCode", err)
		return
	}
	h.Logger.LogMethodEntry("GetTicketQRCode", "eventId", eventID, "ticketId", ticketID)

	png, err := h.TicketService.TicketQRCode(r.Context(), eventID, ticketID.String())
	if err != nil {
		h.fail(w, r, "GetTicketQRCode", err)
		return
	}
	h.Logger.LogMethodExit("GetTicketQRCode", "bytes", len(png))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
