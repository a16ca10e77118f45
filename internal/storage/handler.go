package storage

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

// MediaHandler serves stored files under the /media/* route.
func MediaHandler(store FileStorage, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relPath := chi.URLParam(r, "*")
		data, err := store.Open(r.Context(), relPath)
		if err != nil {
			if utils.StatusFor(err) == http.StatusInternalServerError {
				log.LogException("MediaHandler "+relPath, err)
			}
			utils.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
