package events

import (
	"context"
	"fmt"
	"strings"

	"ms-events/internal/models"
	"ms-events/internal/storage"
)

// UpdateEventMainPhoto stores file as the event's main photo and removes the previous one.
func (s *EventService) UpdateEventMainPhoto(ctx context.Context, eventID int64, file models.UploadedFile) (*models.FileUploadResponse, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := storage.DetectImage(file.Data, s.MaxUploadBytes); err != nil {
		return nil, err
	}

	path, err := s.Storage.Store(ctx, fmt.Sprintf("events/%d/main", eventID), file.FileName, file.Data)
	if err != nil {
		return nil, err
	}
	if err := s.DB.UpdateMainPhoto(ctx, eventID, path); err != nil {
		if delErr := s.Storage.Delete(ctx, path); delErr != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to clean up %s: %v", path, delErr))
		}
		return nil, err
	}

	if event.MainPhotoPath != "" {
		if err := s.Storage.Delete(ctx, event.MainPhotoPath); err != nil {
			s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete previous main photo %s: %v", event.MainPhotoPath, err))
		}
	}

	return &models.FileUploadResponse{
		FileName: file.FileName,
		FileURL:  s.Storage.PublicURL(path),
		Message:  "Main photo updated successfully",
	}, nil
}

// AddEventGalleryImages validates every file before storing any of them.
func (s *EventService) AddEventGalleryImages(ctx context.Context, eventID int64, files []models.UploadedFile) ([]models.FileUploadResponse, error) {
	if len(files) == 0 {
		return nil, models.NewValidation("NO_FILES", "at least one file is required")
	}
	if _, err := s.DB.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := storage.DetectImage(f.Data, s.MaxUploadBytes); err != nil {
			return nil, fmt.Errorf("%s: %w", f.FileName, err)
		}
	}

	responses := make([]models.FileUploadResponse, 0, len(files))
	for _, f := range files {
		path, err := s.Storage.Store(ctx, fmt.Sprintf("events/%d/gallery", eventID), f.FileName, f.Data)
		if err != nil {
			return nil, err
		}
		image := &models.GalleryImage{EventID: eventID, Path: path, CreatedAt: s.now()}
		if err := s.DB.AddGalleryImage(ctx, image); err != nil {
			if delErr := s.Storage.Delete(ctx, path); delErr != nil {
				s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to clean up %s: %v", path, delErr))
			}
			return nil, err
		}
		responses = append(responses, models.FileUploadResponse{
			FileName: f.FileName,
			FileURL:  s.Storage.PublicURL(path),
			Message:  "Image added to gallery",
		})
	}
	return responses, nil
}

// RemoveEventGalleryImage accepts the public URL returned on upload or the stored path.
func (s *EventService) RemoveEventGalleryImage(ctx context.Context, eventID int64, imageRef string) error {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return models.NewValidation("IMAGE_PATH_REQUIRED", "imagePath is required")
	}
	if _, err := s.DB.GetEventByID(ctx, eventID); err != nil {
		return err
	}

	image, err := s.DB.FindGalleryImage(ctx, eventID, s.Storage.PathFromReference(imageRef))
	if err != nil {
		return err
	}
	if err := s.DB.DeleteGalleryImage(ctx, image.ID); err != nil {
		return err
	}
	if err := s.Storage.Delete(ctx, image.Path); err != nil {
		s.Logger.Warn("STORAGE", fmt.Sprintf("Failed to delete gallery image %s: %v", image.Path, err))
	}
	return nil
}
