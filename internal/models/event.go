package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventStatusDraft           EventStatus = "DRAFT"
	EventStatusPendingApproval EventStatus = "PENDING_APPROVAL"
	EventStatusPublished       EventStatus = "PUBLISHED"
	EventStatusCancelled       EventStatus = "CANCELLED"
	EventStatusCompleted       EventStatus = "COMPLETED"
)

// eventTransitions lists the statuses reachable from each status.
var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:           {EventStatusPendingApproval, EventStatusPublished, EventStatusCancelled},
	EventStatusPendingApproval: {EventStatusDraft, EventStatusPublished, EventStatusCancelled},
	EventStatusPublished:       {EventStatusCancelled, EventStatusCompleted},
}

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPendingApproval, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether an event in status s may move to next.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Address struct {
	Street  string `bun:"street" json:"street,omitempty"`
	City    string `bun:"city" json:"city" validate:"required,max=120"`
	ZipCode string `bun:"zip_code" json:"zipCode,omitempty" validate:"max=20"`
	Country string `bun:"country" json:"country,omitempty" validate:"max=80"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID                int64       `bun:"id,pk,autoincrement"`
	StructureID       int64       `bun:"structure_id,notnull"`
	Name              string      `bun:"name,notnull"`
	ShortDescription  string      `bun:"short_description"`
	FullDescription   string      `bun:"full_description"`
	StartDate         time.Time   `bun:"start_date,notnull"`
	EndDate           time.Time   `bun:"end_date,notnull"`
	Address           Address     `bun:"embed:address_"`
	IsFreeEvent       bool        `bun:"is_free_event,notnull"`
	DisplayOnHomepage bool        `bun:"display_on_homepage,notnull"`
	IsFeaturedEvent   bool        `bun:"is_featured_event,notnull"`
	MainPhotoPath     string      `bun:"main_photo_path"`
	Status            EventStatus `bun:"status,notnull"`
	CreatedAt         time.Time   `bun:"created_at,notnull"`
	UpdatedAt         time.Time   `bun:"updated_at,notnull"`
}

// EventCategoryLink associates an event with one of its categories.
type EventCategoryLink struct {
	bun.BaseModel `bun:"table:event_category_links"`

	EventID    int64 `bun:"event_id,pk"`
	CategoryID int64 `bun:"category_id,pk"`
}

type EventTag struct {
	bun.BaseModel `bun:"table:event_tags"`

	EventID int64  `bun:"event_id,pk"`
	Tag     string `bun:"tag,pk"`
}

type GalleryImage struct {
	bun.BaseModel `bun:"table:event_gallery_images"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EventID   int64     `bun:"event_id,notnull"`
	Path      string    `bun:"path,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// EventRelations carries the associations loaded alongside an event row.
type EventRelations struct {
	Categories []EventCategory
	Tags       []string
	Gallery    []GalleryImage
}

// EventSearchParams filters the public event listing. Nil / empty fields impose no constraint.
type EventSearchParams struct {
	Query             string
	CategoryIDs       []int64
	StartDateAfter    *time.Time
	StartDateBefore   *time.Time
	Status            *EventStatus
	DisplayOnHomepage *bool
	IsFeatured        *bool
	StructureID       *int64
	City              string
	Tags              []string
}

// --- Request DTOs ---

type EventCreationRequest struct {
	StructureID       int64     `json:"structureId" validate:"required,gt=0"`
	Name              string    `json:"name" validate:"required,max=255"`
	CategoryIDs       []int64   `json:"categoryIds" validate:"required,min=1,dive,gt=0"`
	ShortDescription  string    `json:"shortDescription" validate:"max=500"`
	FullDescription   string    `json:"fullDescription" validate:"required"`
	Tags              []string  `json:"tags" validate:"max=20,dive,required,max=50"`
	StartDate         time.Time `json:"startDate" validate:"required"`
	EndDate           time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	Address           Address   `json:"address"`
	IsFreeEvent       bool      `json:"isFreeEvent"`
	DisplayOnHomepage bool      `json:"displayOnHomepage"`
	IsFeaturedEvent   bool      `json:"isFeaturedEvent"`
}

// EventUpdateRequest is a partial update: nil fields are left untouched.
type EventUpdateRequest struct {
	Name              *string    `json:"name" validate:"omitempty,min=1,max=255"`
	CategoryIDs       *[]int64   `json:"categoryIds" validate:"omitempty,min=1,dive,gt=0"`
	ShortDescription  *string    `json:"shortDescription" validate:"omitempty,max=500"`
	FullDescription   *string    `json:"fullDescription" validate:"omitempty,min=1"`
	Tags              *[]string  `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	StartDate         *time.Time `json:"startDate"`
	EndDate           *time.Time `json:"endDate"`
	Address           *Address   `json:"address"`
	IsFreeEvent       *bool      `json:"isFreeEvent"`
	DisplayOnHomepage *bool      `json:"displayOnHomepage"`
	IsFeaturedEvent   *bool      `json:"isFeaturedEvent"`
}

type EventStatusUpdateRequest struct {
	Status EventStatus `json:"status" validate:"required,oneof=DRAFT PENDING_APPROVAL PUBLISHED CANCELLED COMPLETED"`
}

// --- Response DTOs ---

type EventSummary struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	ShortDescription  string          `json:"shortDescription,omitempty"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	City              string          `json:"city"`
	StructureID       int64           `json:"structureId"`
	Status            EventStatus     `json:"status"`
	Categories        []EventCategory `json:"categories"`
	MainPhotoURL      string          `json:"mainPhotoUrl,omitempty"`
	IsFreeEvent       bool            `json:"isFreeEvent"`
	DisplayOnHomepage bool            `json:"displayOnHomepage"`
	IsFeaturedEvent   bool            `json:"isFeaturedEvent"`
}

type EventDetail struct {
	ID                int64           `json:"id"`
	StructureID       int64           `json:"structureId"`
	Name              string          `json:"name"`
	ShortDescription  string          `json:"shortDescription,omitempty"`
	FullDescription   string          `json:"fullDescription"`
	Categories        []EventCategory `json:"categories"`
	Tags              []string        `json:"tags"`
	StartDate         time.Time       `json:"startDate"`
	EndDate           time.Time       `json:"endDate"`
	Address           Address         `json:"address"`
	IsFreeEvent       bool            `json:"isFreeEvent"`
	DisplayOnHomepage bool            `json:"displayOnHomepage"`
	IsFeaturedEvent   bool            `json:"isFeaturedEvent"`
	MainPhotoURL      string          `json:"mainPhotoUrl,omitempty"`
	EventPhotoURLs    []string        `json:"eventPhotoUrls"`
	Status            EventStatus     `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type FileUploadResponse struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
	Message  string `json:"message"`
}

// UploadedFile is a multipart part already read into memory by the HTTP layer.
type UploadedFile struct {
	FileName string
	Data     []byte
}
