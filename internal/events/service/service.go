package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/storage"
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event, categoryIDs []int64, tags []string) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event, categoryIDs *[]int64, tags *[]string) error
	UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error
	UpdateMainPhoto(ctx context.Context, id int64, path string) error
	DeleteEvent(ctx context.Context, id int64) error
	SearchEvents(ctx context.Context, params models.EventSearchParams, page models.PageRequest) ([]models.Event, int, error)
	LoadRelations(ctx context.Context, eventIDs []int64) (map[int64]*models.EventRelations, error)
	MissingCategoryIDs(ctx context.Context, ids []int64) ([]int64, error)
	StructureExists(ctx context.Context, id int64) (bool, error)
	GetAllCategories(ctx context.Context) ([]models.EventCategory, error)
	AddGalleryImage(ctx context.Context, image *models.GalleryImage) error
	FindGalleryImage(ctx context.Context, eventID int64, path string) (*models.GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id int64) error
	FriendsAttendingEvent(ctx context.Context, eventID int64, userID string) ([]models.User, error)
}

// CategoryCache is optional; a nil cache always reads the database.
type CategoryCache interface {
	Get(ctx context.Context) ([]models.EventCategory, error)
	Set(ctx context.Context, categories []models.EventCategory) error
}

// Lifecycle message types.
const (
	EventCreated       = "EVENT_CREATED"
	EventUpdated       = "EVENT_UPDATED"
	EventDeleted       = "EVENT_DELETED"
	EventStatusChanged = "EVENT_STATUS_CHANGED"
)

type EventService struct {
	DB             EventDBLayer
	Storage        storage.FileStorage
	Cache          CategoryCache
	Publisher      kafka.Publisher
	Topic          string
	Logger         *logger.Logger
	MaxUploadBytes int64
	Now            func() time.Time
}

func NewEventService(db EventDBLayer, store storage.FileStorage, publisher kafka.Publisher, topic string, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Storage:   store,
		Publisher: publisher,
		Topic:     topic,
		Logger:    log,
	}
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *EventService) CreateEvent(ctx context.Context, req models.EventCreationRequest) (*models.EventDetail, error) {
	exists, err := s.DB.StructureExists(ctx, req.StructureID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFound("STRUCTURE_NOT_FOUND", "structure %d not found", req.StructureID)
	}
	if err := s.checkCategories(ctx, req.CategoryIDs); err != nil {
		return nil, err
	}

	now := s.now()
	event := &models.Event{
		StructureID:       req.StructureID,
		Name:              req.Name,
		ShortDescription:  req.ShortDescription,
		FullDescription:   req.FullDescription,
		StartDate:         req.StartDate.UTC(),
		EndDate:           req.EndDate.UTC(),
		Address:           req.Address,
		IsFreeEvent:       req.IsFreeEvent,
		DisplayOnHomepage: req.DisplayOnHomepage,
		IsFeaturedEvent:   req.IsFeaturedEvent,
		Status:            models.EventStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.DB.CreateEvent(ctx, event, req.CategoryIDs, req.Tags); err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("event %d created in structure %d", event.ID, event.StructureID))
	s.publish(ctx, EventCreated, event)
	return s.detail(ctx, event)
}

// SearchEvents returns one page of summaries. Both date bounds present with
// the lower after the upper is a validation error.
func (s *EventService) SearchEvents(ctx context.Context, params models.EventSearchParams, page models.PageRequest) (*models.PaginatedResponse[models.EventSummary], error) {
	if params.StartDateAfter != nil && params.StartDateBefore != nil && params.StartDateAfter.After(*params.StartDateBefore) {
		return nil, models.NewValidation("INVALID_DATE_RANGE", "startDateAfter must not be later than startDateBefore")
	}

	events, total, err := s.DB.SearchEvents(ctx, params, page)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	relations, err := s.DB.LoadRelations(ctx, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.EventSummary, 0, len(events))
	for i := range events {
		summaries = append(summaries, s.toSummary(&events[i], relations[events[i].ID]))
	}
	return models.NewPage(summaries, page, total), nil
}

func (s *EventService) GetEventByID(ctx context.Context, id int64) (*models.EventDetail, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, event)
}

func (s *EventService) GetFriendsAttendingEvent(ctx context.Context, eventID int64, userID string) ([]models.FriendResponse, error) {
	if _, err := s.DB.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	users, err := s.DB.FriendsAttendingEvent(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	friends := make([]models.FriendResponse, 0, len(users))
	for _, u := range users {
		friends = append(friends, models.FriendResponse{
			UserID:    u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			AvatarURL: u.AvatarURL,
		})
	}
	return friends, nil
}

// UpdateEvent applies the non-nil fields of req.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, req models.EventUpdateRequest) (*models.EventDetail, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.ShortDescription != nil {
		event.ShortDescription = *req.ShortDescription
	}
	if req.FullDescription != nil {
		event.FullDescription = *req.FullDescription
	}
	if req.StartDate != nil {
		event.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		event.EndDate = req.EndDate.UTC()
	}
	if req.Address != nil {
		event.Address = *req.Address
	}
	if req.IsFreeEvent != nil {
		event.IsFreeEvent = *req.IsFreeEvent
	}
	if req.DisplayOnHomepage != nil {
		event.DisplayOnHomepage = *req.DisplayOnHomepage
	}
	if req.IsFeaturedEvent != nil {
		event.IsFeaturedEvent = *req.IsFeaturedEvent
	}
	if !event.EndDate.After(event.StartDate) {
		return nil, models.NewValidation("INVALID_DATE_RANGE", "endDate must be after startDate").
			WithDetails(map[string]string{"endDate": "must be after startDate"})
	}
	if req.CategoryIDs != nil {
		if err := s.checkCategories(ctx, *req.CategoryIDs); err != nil {
			return nil, err
		}
	}

	event.UpdatedAt = s.now()
	if err := s.DB.UpdateEvent(ctx, event, req.CategoryIDs, req.Tags); err != nil {
		return nil, err
	}

	s.publish(ctx, EventUpdated, event)
	return s.detail(ctx, event)
}

// DeleteEvent removes the event rows first, then its stored media.
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	relations, err := s.DB.LoadRelations(ctx, []int64{id})
	if err != nil {
		return err
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return err
	}

	paths := []string{event.MainPhotoPath}
	for _, img := range emptyRelations(relations[id]).Gallery {
		paths = append(paths, img.Path)
	}
	for _, p := range paths {
		if err := s.Storage.Delete(ctx, p); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete %s of removed event %d: %v", p, id, err))
		}
	}

	s.Logger.LogDatabase("DELETE", "events", fmt.Sprintf("event %d deleted", id))
	s.publish(ctx, EventDeleted, event)
	return nil
}

func (s *EventService) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) (*models.EventDetail, error) {
	if !status.Valid() {
		return nil, models.NewValidation("INVALID_STATUS", "unknown status %q", status)
	}
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.Status.CanTransitionTo(status) {
		return nil, models.NewValidation("INVALID_STATUS_TRANSITION", "cannot change status from %s to %s", event.Status, status)
	}

	if err := s.DB.UpdateEventStatus(ctx, id, status); err != nil {
		return nil, err
	}
	event.Status = status
	event.UpdatedAt = s.now()

	s.publish(ctx, EventStatusChanged, event)
	return s.detail(ctx, event)
}

func (s *EventService) GetAllCategories(ctx context.Context) ([]models.EventCategory, error) {
	if s.Cache != nil {
		cached, err := s.Cache.Get(ctx)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Category cache unavailable, using database: %v", err))
		} else if cached != nil {
			return cached, nil
		}
	}

	categories, err := s.DB.GetAllCategories(ctx)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, categories); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Failed to cache categories: %v", err))
		}
	}
	return categories, nil
}

func (s *EventService) checkCategories(ctx context.Context, ids []int64) error {
	missing, err := s.DB.MissingCategoryIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return models.NewNotFound("CATEGORY_NOT_FOUND", "categories not found: %v", missing)
	}
	return nil
}

func (s *EventService) detail(ctx context.Context, event *models.Event) (*models.EventDetail, error) {
	relations, err := s.DB.LoadRelations(ctx, []int64{event.ID})
	if err != nil {
		return nil, err
	}
	return s.toDetail(event, relations[event.ID]), nil
}

// publish reports a lifecycle change. Failures are logged and never fail the caller.
func (s *EventService) publish(ctx context.Context, kind string, event *models.Event) {
	if s.Publisher == nil {
		return
	}
	msg := models.EventLifecycleMessage{
		Type:        kind,
		EventID:     event.ID,
		StructureID: event.StructureID,
		Status:      event.Status,
		OccurredAt:  s.now(),
	}
	if err := kafka.PublishJSON(ctx, s.Publisher, s.Topic, strconv.FormatInt(event.ID, 10), msg); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for event %d: %v", kind, event.ID, err))
	}
}
