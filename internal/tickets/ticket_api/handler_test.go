package ticket_api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-events/internal/auth"
	"ms-events/internal/authz"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) GetEventTickets(ctx context.Context, eventID int64, filter models.TicketFilter, page models.PageRequest) (*models.PaginatedResponse[models.TicketResponse], error) {
	args := m.Called(ctx, eventID, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaginatedResponse[models.TicketResponse]), args.Error(1)
}

func (m *MockTicketService) ValidateTicket(ctx context.Context, eventID int64, ticketID, validatorID string) (*models.TicketValidationResponse, error) {
	args := m.Called(ctx, eventID, ticketID, validatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketValidationResponse), args.Error(1)
}

func (m *MockTicketService) ValidateScannedTicket(ctx context.Context, eventID int64, qrValue, validatorID string) (*models.TicketValidationResponse, error) {
	args := m.Called(ctx, eventID, qrValue, validatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketValidationResponse), args.Error(1)
}

func (m *MockTicketService) TicketQRCode(ctx context.Context, eventID int64, ticketID string) ([]byte, error) {
	args := m.Called(ctx, eventID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTicketService) StatusSummary(ctx context.Context, eventID int64) (*models.TicketStatusSummary, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketStatusSummary), args.Error(1)
}

// MockPolicy grants ticket management according to the configured expectations.
type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) CanCreateInStructure(ctx context.Context, p *auth.Principal, structureID int64) (authz.Decision, error) {
	args := m.Called(ctx, p, structureID)
	return args.Get(0).(authz.Decision), args.Error(1)
}

func (m *MockPolicy) IsOwner(ctx context.Context, p *auth.Principal, eventID int64) (authz.Decision, error) {
	args := m.Called(ctx, p, eventID)
	return args.Get(0).(authz.Decision), args.Error(1)
}

func (m *MockPolicy) CanValidateEventTickets(ctx context.Context, p *auth.Principal, eventID int64) (authz.Decision, error) {
	args := m.Called(ctx, p, eventID)
	return args.Get(0).(authz.Decision), args.Error(1)
}

const ticketID = "6f1c2f3e-8d6b-4f0a-9a55-5b0f0f1d2c3b"

func newRouter(svc *MockTicketService, policy *MockPolicy) http.Handler {
	log := logger.NewLoggerTo(io.Discard)
	cfg := &config.Config{Pagination: config.PaginationConfig{DefaultSize: 20, MaxSize: 100}}
	h := NewHandler(svc, &authz.Guard{Policy: policy}, cfg, log)

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func request(method, target string, body io.Reader, principal *auth.Principal) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if principal != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), principal))
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

var staff = &auth.Principal{UserID: "staff-1", Roles: []string{models.RoleReservationService}}

func TestValidateTicket(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("ValidateTicket", mock.Anything, int64(42), ticketID, "staff-1").
		Return(&models.TicketValidationResponse{TicketID: ticketID, Status: models.TicketStatusUsed}, nil).Once()
	svc.On("ValidateTicket", mock.Anything, int64(42), ticketID, "staff-1").
		Return(nil, models.NewValidation("TICKET_ALREADY_USED", "ticket already used")).Once()

	target := "/api/v1/events/42/management/tickets/" + ticketID + "/validate"
	rec := serve(router, request(http.MethodPost, target, nil, staff))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"USED"`)

	rec = serve(router, request(http.MethodPost, target, nil, staff))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TICKET_ALREADY_USED", errorCode(t, rec))
}

func TestTicketRoutesRequireAuthorization(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)
	spectator := &auth.Principal{UserID: "fan", Roles: []string{models.RoleSpectator}}

	policy.On("CanValidateEventTickets", mock.Anything, spectator, int64(42)).Return(authz.Deny("not staff"), nil)

	target := "/api/v1/events/42/management/tickets/" + ticketID + "/validate"
	rec := serve(router, request(http.MethodPost, target, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, request(http.MethodPost, target, nil, spectator))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCESS_DENIED", errorCode(t, rec))

	rec = serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets", nil, spectator))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	svc.AssertNotCalled(t, "ValidateTicket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "GetEventTickets", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidateTicketRejectsMalformedID(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)
	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)

	rec := serve(router, request(http.MethodPost, "/api/v1/events/42/management/tickets/not-a-uuid/validate", nil, staff))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PATH_PARAMETER", errorCode(t, rec))
}

func TestListTickets(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("GetEventTickets", mock.Anything, int64(42), mock.MatchedBy(func(f models.TicketFilter) bool {
		return f.Status != nil && *f.Status == models.TicketStatusValid && f.Search == "martin"
	}), mock.MatchedBy(func(p models.PageRequest) bool {
		return p.Page == 1 && p.Size == 5 && len(p.Sort) == 1 && p.Sort[0].Column == "t.participant_last_name"
	})).Return(&models.PaginatedResponse[models.TicketResponse]{
		Items:       []models.TicketResponse{{ID: ticketID, Status: models.TicketStatusValid}},
		CurrentPage: 1,
		PageSize:    5,
		TotalItems:  6,
		TotalPages:  2,
	}, nil)

	rec := serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets?status=valid&search=martin&page=1&size=5&sort=lastName", nil, staff))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page models.PaginatedResponse[models.TicketResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 6, page.TotalItems)
	require.Len(t, page.Items, 1)
	svc.AssertExpectations(t)
}

func TestListTicketsRejectsBadQuery(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)
	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)

	rec := serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets?status=LOST", nil, staff))
	assert.Equal(t, "INVALID_QUERY_PARAMETER", errorCode(t, rec))

	rec = serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets?sort=price", nil, staff))
	assert.Equal(t, "INVALID_SORT", errorCode(t, rec))
}

func TestUnknownEventIsNotFound(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(9)).
		Return(authz.Decision{}, models.NewNotFound("EVENT_NOT_FOUND", "event 9 not found"))

	rec := serve(router, request(http.MethodGet, "/api/v1/events/9/management/tickets", nil, staff))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", errorCode(t, rec))
}

func TestScanTicket(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("ValidateScannedTicket", mock.Anything, int64(42), "sealed-value", "staff-1").
		Return(&models.TicketValidationResponse{TicketID: ticketID, Status: models.TicketStatusUsed}, nil)

	rec := serve(router, request(http.MethodPost, "/api/v1/events/42/management/tickets/scan", strings.NewReader(`{"qrCodeValue":"sealed-value"}`), staff))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, request(http.MethodPost, "/api/v1/events/42/management/tickets/scan", strings.NewReader(`{}`), staff))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	svc.AssertNumberOfCalls(t, "ValidateScannedTicket", 1)
}

func TestGetTicketQRCode(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)
	png := []byte("\x89PNG\r\n\x1a\nrest")

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("TicketQRCode", mock.Anything, int64(42), ticketID).Return(png, nil)

	rec := serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets/"+ticketID+"/qr", nil, staff))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestGetTicketSummary(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	router := newRouter(svc, policy)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("StatusSummary", mock.Anything, int64(42)).Return(&models.TicketStatusSummary{
		EventID:  42,
		Total:    3,
		ByStatus: map[models.TicketStatus]int{models.TicketStatusValid: 2, models.TicketStatusUsed: 1},
	}, nil)

	rec := serve(router, request(http.MethodGet, "/api/v1/events/42/management/tickets/summary", nil, staff))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"eventId":42,"total":3,"byStatus":{"VALID":2,"USED":1}}`, rec.Body.String())
}

func TestRejectionsAreLoggedWithTheirCode(t *testing.T) {
	svc, policy := new(MockTicketService), new(MockPolicy)
	var logs bytes.Buffer
	h := NewHandler(svc, &authz.Guard{Policy: policy}, &config.Config{}, logger.NewLoggerTo(&logs))
	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)

	policy.On("CanValidateEventTickets", mock.Anything, staff, int64(42)).Return(authz.Allow(), nil)
	svc.On("ValidateTicket", mock.Anything, int64(42), ticketID, "staff-1").
		Return(nil, models.NewValidation("TICKET_ALREADY_USED", "ticket already used"))

	rec := serve(r, request(http.MethodPost, "/api/v1/events/42/management/tickets/"+ticketID+"/validate", nil, staff))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, logs.String(), "ValidateTicket rejected with TICKET_ALREADY_USED")
}
