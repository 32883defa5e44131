package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// maxUploadSize bounds multipart uploads (a single photo per request).
const maxUploadSize = 20 << 20 // 20 MiB

// Extractor is the perception boundary consumed by handlers: image bytes in,
// eye-region embedding out.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float32, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
