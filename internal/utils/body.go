package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ms-events/internal/models"
)

// DecodeJSON decodes a single JSON document into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidation("INVALID_BODY", "request body is empty")
		}
		return models.NewValidation("INVALID_BODY", "invalid JSON body: %v", err)
	}
	if dec.More() {
		return models.NewValidation("INVALID_BODY", "request body must contain a single JSON object")
	}
	return nil
}
