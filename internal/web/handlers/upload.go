package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// readImageUpload pulls the "image" file out of a parsed multipart form.
func readImageUpload(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image file is required: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("reading uploaded image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded image is empty")
	}
	return data, nil
}

// archiveImage writes an uploaded photo into the media directory for later
// review. Registration photos are keyed by student id so re-registration
// replaces them; query photos get a fresh uuid. Archiving is best-effort and
// disabled when dir is empty.
func archiveImage(dir, studentID string, data []byte) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media directory: %w", err)
	}

	name := studentID
	if name == "" {
		name = "query-" + uuid.NewString()
	}
	path := filepath.Join(dir, name+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("archiving image: %w", err)
	}
	return path, nil
}
