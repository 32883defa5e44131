package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/extractor"
	"github.com/ocularid/eyemark/internal/imaging"
	"github.com/ocularid/eyemark/internal/store"
)

// StudentsHandler handles enrollment and registry listing.
type StudentsHandler struct {
	registrar *attendance.Registrar
	store     store.IdentityStore
	extractor Extractor
	mediaDir  string
}

// NewStudentsHandler creates a students handler.
func NewStudentsHandler(registrar *attendance.Registrar, st store.IdentityStore, ex Extractor, mediaDir string) *StudentsHandler {
	return &StudentsHandler{
		registrar: registrar,
		store:     st,
		extractor: ex,
		mediaDir:  mediaDir,
	}
}

// studentResponse is the registry listing shape. Embeddings themselves stay
// server-side; only their length is reported.
type studentResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	EmbeddingDim int    `json:"embedding_dim"`
}

// Register enrolls a student from a multipart form with id, name,
// department and an image file. Re-registering an existing id replaces it.
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	id := r.FormValue("id")
	name := r.FormValue("name")
	department := r.FormValue("department")
	if id == "" || name == "" || department == "" {
		respondError(w, http.StatusBadRequest, "id, name and department are required")
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
		log.Printf("extraction failed for student %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusBadGateway, "embedding extraction failed")
		return
	}

	err = h.registrar.Register(r.Context(), store.Student{
		ID: id, Name: name, Department: department, Embedding: embedding,
	})
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDimensionConflict):
			respondError(w, http.StatusConflict, "embedding dimension conflicts with enrolled registry")
		default:
			log.Printf("registration failed for student %s: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to register student")
		}
		return
	}

	if _, err := archiveImage(h.mediaDir, id, photo); err != nil {
		log.Printf("warning: failed to archive photo for %s: %v", sanitizeForLog(id), err)
	}

	log.Printf("registered student %s (%s)", sanitizeForLog(id), sanitizeForLog(name))
	respondJSON(w, http.StatusCreated, map[string]string{
		"status":     "registered",
		"student_id": id,
		"name":       name,
	})
}

// List returns enrolled students, optionally filtered by a
// diacritics-insensitive name query (?q=).
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListAll(r.Context())
	if err != nil {
		log.Printf("listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	students = store.FilterByName(students, r.URL.Query().Get("q"))

	resp := make([]studentResponse, 0, len(students))
	for _, st := range students {
		resp = append(resp, studentResponse{
			ID:           st.ID,
			Name:         st.Name,
			Department:   st.Department,
			EmbeddingDim: len(st.Embedding),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"students": resp,
		"count":    len(resp),
	})
}
