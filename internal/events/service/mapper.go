package events

import "ms-events/internal/models"

func emptyRelations(r *models.EventRelations) *models.EventRelations {
	if r == nil {
		return &models.EventRelations{Categories: []models.EventCategory{}, Tags: []string{}}
	}
	return r
}

func (s *EventService) toSummary(e *models.Event, r *models.EventRelations) models.EventSummary {
	r = emptyRelations(r)
	return models.EventSummary{
		ID:                e.ID,
		Name:              e.Name,
		ShortDescription:  e.ShortDescription,
		StartDate:         e.StartDate,
		EndDate:           e.EndDate,
		City:              e.Address.City,
		StructureID:       e.StructureID,
		Status:            e.Status,
		Categories:        r.Categories,
		MainPhotoURL:      s.Storage.PublicURL(e.MainPhotoPath),
		IsFreeEvent:       e.IsFreeEvent,
		DisplayOnHomepage: e.DisplayOnHomepage,
		IsFeaturedEvent:   e.IsFeaturedEvent,
	}
}

func (s *EventService) toDetail(e *models.Event, r *models.EventRelations) *models.EventDetail {
	r = emptyRelations(r)
	photos := make([]string, 0, len(r.Gallery))
	for _, img := range r.Gallery {
		photos = append(photos, s.Storage.PublicURL(img.Path))
	}
	return &models.EventDetail{
		ID:                e.ID,
		StructureID:       e.StructureID,
		Name:              e.Name,
		ShortDescription:  e.ShortDescription,
		FullDescription:   e.FullDescription,
		Categories:        r.Categories,
		Tags:              r.Tags,
		StartDate:         e.StartDate,
		EndDate:           e.EndDate,
		Address:           e.Address,
		IsFreeEvent:       e.IsFreeEvent,
		DisplayOnHomepage: e.DisplayOnHomepage,
		IsFeaturedEvent:   e.IsFeaturedEvent,
		MainPhotoURL:      s.Storage.PublicURL(e.MainPhotoPath),
		EventPhotoURLs:    photos,
		Status:            e.Status,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
