package event_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/authz"
	"ms-events/internal/config"
	eventdb "ms-events/internal/events/db"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

type EventService interface {
	CreateEvent(ctx context.Context, req models.EventCreationRequest) (*models.EventDetail, error)
	SearchEvents(ctx context.Context, params models.EventSearchParams, page models.PageRequest) (*models.PaginatedResponse[models.EventSummary], error)
	GetEventByID(ctx context.Context, id int64) (*models.EventDetail, error)
	GetFriendsAttendingEvent(ctx context.Context, eventID int64, userID string) ([]models.FriendResponse, error)
	UpdateEvent(ctx context.Context, id int64, req models.EventUpdateRequest) (*models.EventDetail, error)
	DeleteEvent(ctx context.Context, id int64) error
	UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) (*models.EventDetail, error)
	UpdateEventMainPhoto(ctx context.Context, eventID int64, file models.UploadedFile) (*models.FileUploadResponse, error)
	AddEventGalleryImages(ctx context.Context, eventID int64, files []models.UploadedFile) ([]models.FileUploadResponse, error)
	RemoveEventGalleryImage(ctx context.Context, eventID int64, imageRef string) error
	GetAllCategories(ctx context.Context) ([]models.EventCategory, error)
}

// multipartMemory is the part of a multipart body kept in memory before spilling to disk.
const multipartMemory = 8 << 20

type Handler struct {
	EventService   EventService
	Validator      *validation.Validator
	Guard          *authz.Guard
	Logger         *logger.Logger
	Pagination     config.PaginationConfig
	MaxUploadBytes int64
}

func NewHandler(svc EventService, guard *authz.Guard, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		EventService:   svc,
		Validator:      validation.New(),
		Guard:          guard,
		Logger:         log,
		Pagination:     cfg.Pagination,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/event-categories", h.GetAllCategories)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.SearchEvents)
		r.With(authz.Require(h.Logger, h.Guard.CanCreateFromBody())).Post("/", h.CreateEvent)

		r.Route("/{eventId}", func(r chi.Router) {
			r.Get("/", h.GetEventByID)
			r.With(auth.RequireAuthenticated).Get("/friends", h.GetFriendsAttendingEvent)

			r.Group(func(r chi.Router) {
				r.Use(authz.Require(h.Logger, h.Guard.OwnsEvent("eventId")))
				r.Patch("/", h.UpdateEvent)
				r.Delete("/", h.DeleteEvent)
				r.Patch("/status", h.UpdateEventStatus)
				r.Post("/main-photo", h.UploadMainPhoto)
				r.Post("/gallery", h.AddGalleryImages)
				r.Delete("/gallery", h.RemoveGalleryImage)
			})
		})
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

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventCreationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "CreateEvent", err)
		return
	}
	h.Logger.LogMethodEntry("CreateEvent", "structureId", req.StructureID, "user", auth.UserID(r.Context()))
	if err := h.Validator.ValidateStruct(req); err != nil {
		h.fail(w, r, "CreateEvent", err)
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), req)
	if err != nil {
		h.fail(w, r, "CreateEvent", err)
		return
	}
	h.Logger.LogMethodExit("CreateEvent", "eventId", event.ID)
	utils.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	h.Logger.LogMethodEntry("SearchEvents", "query", r.URL.RawQuery)

	params, err := parseSearchParams(r)
	if err != nil {
		h.fail(w, r, "SearchEvents", err)
		return
	}
	page, err := utils.ParsePageable(r, eventdb.SortColumns, eventdb.DefaultSort, h.Pagination.DefaultSize, h.Pagination.MaxSize)
	if err != nil {
		h.fail(w, r, "SearchEvents", err)
		return
	}

	result, err := h.EventService.SearchEvents(r.Context(), params, page)
	if err != nil {
		h.fail(w, r, "SearchEvents", err)
		return
	}
	h.Logger.LogMethodExit("SearchEvents", "items", len(result.Items), "total", result.TotalItems)
	utils.WriteJSON(w, http.StatusOK, result)
}

func parseSearchParams(r *http.Request) (models.EventSearchParams, error) {
	var (
		params models.EventSearchParams
		err    error
	)
	params.Query = strings.TrimSpace(r.URL.Query().Get("query"))
	params.City = strings.TrimSpace(r.URL.Query().Get("city"))
	params.Tags = utils.QueryList(r, "tags")

	if params.CategoryIDs, err = utils.QueryInt64List(r, "categoryIds"); err != nil {
		return params, err
	}
	if params.StartDateAfter, err = utils.QueryTime(r, "startDateAfter"); err != nil {
		return params, err
	}
	if params.StartDateBefore, err = utils.QueryTime(r, "startDateBefore"); err != nil {
		return params, err
	}
	if params.DisplayOnHomepage, err = utils.QueryBool(r, "displayOnHomepage"); err != nil {
		return params, err
	}
	if params.IsFeatured, err = utils.QueryBool(r, "isFeatured"); err != nil {
		return params, err
	}
	if params.StructureID, err = utils.QueryInt64(r, "structureId"); err != nil {
		return params, err
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.EventStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return params, models.NewValidation("INVALID_QUERY_PARAMETER", "invalid status: %q", raw)
		}
		params.Status = &status
	}
	return params, nil
}

func (h *Handler) GetEventByID(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "GetEventByID", err)
		return
	}
	h.Logger.LogMethodEntry("GetEventByID", "eventId", id)

	event, err := h.EventService.GetEventByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetEventByID", err)
		return
	}
	h.Logger.LogMethodExit("GetEventByID", "eventId", id)
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) GetFriendsAttendingEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "GetFriendsAttendingEvent", err)
		return
	}
	userID := auth.UserID(r.Context())
	h.Logger.LogMethodEntry("GetFriendsAttendingEvent", "eventId", id, "user", userID)

	friends, err := h.EventService.GetFriendsAttendingEvent(r.Context(), id, userID)
	if err != nil {
		h.fail(w, r, "GetFriendsAttendingEvent", err)
		return
	}
	h.Logger.LogMethodExit("GetFriendsAttendingEvent", "friends", len(friends))
	utils.WriteJSON(w, http.StatusOK, friends)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "UpdateEvent", err)
		return
	}
	h.Logger.LogMethodEntry("UpdateEvent", "eventId", id)

	var req models.EventUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "UpdateEvent", err)
		return
	}
	if err := h.Validator.ValidateStruct(req); err != nil {
		h.fail(w, r, "UpdateEvent", err)
		return
	}

	event, err := h.EventService.UpdateEvent(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, "UpdateEvent", err)
		return
	}
	h.Logger.LogMethodExit("UpdateEvent", "eventId", id)
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "DeleteEvent", err)
		return
	}
	h.Logger.LogMethodEntry("DeleteEvent", "eventId", id)

	if err := h.EventService.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, r, "DeleteEvent", err)
		return
	}
	h.Logger.LogMethodExit("DeleteEvent", "eventId", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "UpdateEventStatus", err)
		return
	}

	var req models.EventStatusUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "UpdateEventStatus", err)
		return
	}
	h.Logger.LogMethodEntry("UpdateEventStatus", "eventId", id, "status", req.Status)
	if err := h.Validator.ValidateStruct(req); err != nil {
		h.fail(w, r, "UpdateEventStatus", err)
		return
	}

	event, err := h.EventService.UpdateEventStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, "UpdateEventStatus", err)
		return
	}
	h.Logger.LogMethodExit("UpdateEventStatus", "eventId", id, "status", event.Status)
	utils.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) UploadMainPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "UploadMainPhoto", err)
		return
	}
	h.Logger.LogMethodEntry("UploadMainPhoto", "eventId", id)

	files, err := h.readFiles(w, r, "file")
	if err != nil {
		h.fail(w, r, "UploadMainPhoto", err)
		return
	}
	if len(files) != 1 {
		h.fail(w, r, "UploadMainPhoto", models.NewValidation("FILE_REQUIRED", "exactly one file is required in field \"file\""))
		return
	}

	resp, err := h.EventService.UpdateEventMainPhoto(r.Context(), id, files[0])
	if err != nil {
		h.fail(w, r, "UploadMainPhoto", err)
		return
	}
	h.Logger.LogMethodExit("UploadMainPhoto", "eventId", id, "url", resp.FileURL)
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddGalleryImages(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "AddGalleryImages", err)
		return
	}
	h.Logger.LogMethodEntry("AddGalleryImages", "eventId", id)

	files, err := h.readFiles(w, r, "files")
	if err != nil {
		h.fail(w, r, "AddGalleryImages", err)
		return
	}

	resp, err := h.EventService.AddEventGalleryImages(r.Context(), id, files)
	if err != nil {
		h.fail(w, r, "AddGalleryImages", err)
		return
	}
	h.Logger.LogMethodExit("AddGalleryImages", "eventId", id, "stored", len(resp))
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RemoveGalleryImage(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathInt64(r, "eventId")
	if err != nil {
		h.fail(w, r, "RemoveGalleryImage", err)
		return
	}
	imagePath := r.URL.Query().Get("imagePath")
	h.Logger.LogMethodEntry("RemoveGalleryImage", "eventId", id, "imagePath", imagePath)

	if err := h.EventService.RemoveEventGalleryImage(r.Context(), id, imagePath); err != nil {
		h.fail(w, r, "RemoveGalleryImage", err)
		return
	}
	h.Logger.LogMethodExit("RemoveGalleryImage", "eventId", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	h.Logger.LogMethodEntry("GetAllCategories")

	categories, err := h.EventService.GetAllCategories(r.Context())
	if err != nil {
		h.fail(w, r, "GetAllCategories", err)
		return
	}
	h.Logger.LogMethodExit("GetAllCategories", "count", len(categories))
	utils.WriteJSON(w, http.StatusOK, categories)
}

// readFiles reads every part of the multipart field into memory. The whole
// body is bounded by MaxUploadBytes per file plus form overhead.
func (h *Handler) readFiles(w http.ResponseWriter, r *http.Request, field string) ([]models.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 10*h.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, models.NewValidation("FILE_TOO_LARGE", "request body exceeds the upload limit")
		}
		return nil, models.NewValidation("INVALID_MULTIPART", "invalid multipart body: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, models.NewValidation("FILE_REQUIRED", "multipart field %q is required", field)
	}

	files := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh, h.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, models.UploadedFile{FileName: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, models.NewValidation("FILE_TOO_LARGE", "%s exceeds %d bytes", fh.Filename, maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}
