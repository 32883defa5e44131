package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/extractor"
	"github.com/ocularid/eyemark/internal/imaging"
	"github.com/ocularid/eyemark/internal/match"
	"github.com/ocularid/eyemark/internal/store"
)

// AttendanceHandler handles marking attendance and reading the ledger.
type AttendanceHandler struct {
	marker    *attendance.Marker
	store     store.IdentityStore
	extractor Extractor
	mediaDir  string
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(marker *attendance.Marker, st store.IdentityStore, ex Extractor, mediaDir string) *AttendanceHandler {
	return &AttendanceHandler{
		marker:    marker,
		store:     st,
		extractor: ex,
		mediaDir:  mediaDir,
	}
}

// Mark extracts an embedding from the uploaded photo and runs the match
// decision against the enrolled registry. Every outcome returns 200 with a
// status field; only malformed requests and infrastructure failures error.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	raw, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	photo, err := imaging.Normalize(raw, imaging.MaxDimension)
	if err != nil {
		respondError(w, http.StatusBadRequest, "uploaded file is not a valid image")
		return
	}

	embedding, err := h.extractor.Extract(r.Context(), photo)
	if err != nil {
		if errors.Is(err, extractor.ErrNoEyeRegion) {
			respondError(w, http.StatusUnprocessableEntity, "no eye region detected in image")
			return
		}
		log.Printf("extraction failed for attendance query: %v", err)
		respondError(w, http.StatusBadGateway, "embedding extraction failed")
		return
	}

	outcome, err := h.marker.Mark(r.Context(), embedding)
	if err != nil {
		var dimErr *match.ErrDimensionMismatch
		if errors.As(err, &dimErr) {
			respondError(w, http.StatusBadRequest, dimErr.Error())
			return
		}
		log.Printf("attendance marking failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to mark attendance")
		return
	}

	if _, err := archiveImage(h.mediaDir, "", photo); err != nil {
		log.Printf("warning: failed to archive query photo: %v", err)
	}

	switch outcome.Kind {
	case attendance.OutcomeMarked:
		log.Printf("attendance marked for %s (distance %.4f)", sanitizeForLog(outcome.StudentID), outcome.Distance)
		respondJSON(w, http.StatusOK, map[string]any{
			"status":     string(outcome.Kind),
			"student_id": outcome.StudentID,
			"name":       outcome.Name,
			"distance":   outcome.Distance,
		})
	case attendance.OutcomeNoStudents:
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  string(outcome.Kind),
			"message": "no students registered yet",
		})
	default:
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  string(outcome.Kind),
			"message": "no matching student found",
		})
	}
}

// List returns attendance records, newest first, optionally filtered by
// student id (?student=).
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAttendance(r.Context(), r.URL.Query().Get("student"))
	if err != nil {
		log.Printf("listing attendance failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	type recordResponse struct {
		ID        int64  `json:"id"`
		StudentID string `json:"student_id"`
		Timestamp string `json:"timestamp"`
	}
	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, recordResponse{ID: rec.ID, StudentID: rec.StudentID, Timestamp: rec.Timestamp})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": resp,
		"count":   len(resp),
	})
}
