package utils

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ms-events/internal/models"
)

// PathInt64 reads a positive numeric chi URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidation("INVALID_PATH_PARAMETER", "invalid %s: %q", name, raw)
	}
	return id, nil
}

func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, models.NewValidation("INVALID_PATH_PARAMETER", "invalid %s: %q", name, raw)
	}
	return id, nil
}

func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidation("INVALID_QUERY_PARAMETER", "invalid %s: %q", name, raw)
	}
	return &v, nil
}

func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidation("INVALID_QUERY_PARAMETER", "invalid %s: %q", name, raw)
	}
	return &v, nil
}

// QueryTime accepts RFC 3339 timestamps or plain dates (midnight UTC).
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, models.NewValidation("INVALID_QUERY_PARAMETER", "invalid %s: %q", name, raw)
}

// QueryList collects a repeated or comma separated parameter.
func QueryList(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func QueryInt64List(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, raw := range QueryList(r, name) {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, models.NewValidation("INVALID_QUERY_PARAMETER", "invalid %s entry: %q", name, raw)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParsePageable reads page, size and sort. Sort entries are "field" or
// "field,asc|desc" and may repeat; fields are mapped through allowed.
func ParsePageable(r *http.Request, allowed map[string]string, defaultSort []models.SortOrder, defaultSize, maxSize int) (models.PageRequest, error) {
	q := r.URL.Query()
	page := models.PageRequest{Page: 0, Size: defaultSize}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return page, models.NewValidation("INVALID_PAGINATION", "page must be a non-negative integer, got %q", raw)
		}
		page.Page = v
	}
	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return page, models.NewValidation("INVALID_PAGINATION", "size must be a positive integer, got %q", raw)
		}
		page.Size = v
	}
	if maxSize > 0 && page.Size > maxSize {
		page.Size = maxSize
	}
	if page.Size > 0 && page.Page > math.MaxInt32/page.Size {
		return page, models.NewValidation("INVALID_PAGINATION", "page %d is out of range", page.Page)
	}

	for _, raw := range q["sort"] {
		order, err := parseSort(raw, allowed)
		if err != nil {
			return page, err
		}
		page.Sort = append(page.Sort, order)
	}
	if len(page.Sort) == 0 {
		page.Sort = defaultSort
	}
	return page, nil
}

func parseSort(raw string, allowed map[string]string) (models.SortOrder, error) {
	parts := strings.Split(raw, ",")
	if len(parts) > 2 {
		return models.SortOrder{}, models.NewValidation("INVALID_SORT", "invalid sort %q", raw)
	}
	field := strings.TrimSpace(parts[0])
	column, ok := allowed[field]
	if !ok {
		return models.SortOrder{}, models.NewValidation("INVALID_SORT", "cannot sort by %q", field)
	}
	order := models.SortOrder{Field: field, Column: column}
	if len(parts) == 2 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "asc":
		case "desc":
			order.Descending = true
		default:
			return models.SortOrder{}, models.NewValidation("INVALID_SORT", "invalid sort direction in %q", raw)
		}
	}
	return order, nil
}
