package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/extractor"
	"github.com/ocularid/eyemark/internal/match"
	"github.com/ocularid/eyemark/internal/store"
	"github.com/ocularid/eyemark/internal/store/mock"
)

func newAttendanceHandler(st *mock.Store, ex Extractor, threshold float64) *AttendanceHandler {
	marker := attendance.NewMarker(st, match.NewFlat(), threshold)
	return NewAttendanceHandler(marker, st, ex, "")
}

func seedStudent(t *testing.T, st *mock.Store, id, name string, embedding []float32) {
	t.Helper()
	err := st.Upsert(context.Background(), store.Student{
		ID: id, Name: name, Department: "CS", Embedding: embedding,
	})
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
}

func TestAttendanceMark_Accepted(t *testing.T) {
	st := mock.New()
	seedStudent(t, st, "s-1", "Ada Novak", []float32{1, 0, 0})
	handler := newAttendanceHandler(st, &stubExtractor{embedding: []float32{1, 0.1, 0}}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Status    string  `json:"status"`
		StudentID string  `json:"student_id"`
		Name      string  `json:"name"`
		Distance  float64 `json:"distance"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Status != "marked" || resp.StudentID != "s-1" || resp.Name != "Ada Novak" {
		t.Errorf("unexpected response: %+v", resp)
	}

	records, _ := st.ListAttendance(context.Background(), "")
	if len(records) != 1 || records[0].StudentID != "s-1" {
		t.Errorf("expected one ledger record for s-1, got %v", records)
	}
}

func TestAttendanceMark_NoMatch(t *testing.T) {
	st := mock.New()
	seedStudent(t, st, "s-1", "Ada Novak", []float32{1, 0, 0})
	handler := newAttendanceHandler(st, &stubExtractor{embedding: []float32{-1, 0, 0}}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["status"] != "no_match" {
		t.Errorf("expected no_match, got %v", resp)
	}

	records, _ := st.ListAttendance(context.Background(), "")
	if len(records) != 0 {
		t.Errorf("expected empty ledger after rejection, got %v", records)
	}
}

func TestAttendanceMark_EmptyRegistry(t *testing.T) {
	handler := newAttendanceHandler(mock.New(), &stubExtractor{embedding: []float32{1, 0, 0}}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["status"] != "no_students" {
		t.Errorf("expected no_students, got %v", resp)
	}
}

func TestAttendanceMark_NoEyeRegion(t *testing.T) {
	st := mock.New()
	seedStudent(t, st, "s-1", "Ada Novak", []float32{1, 0, 0})
	handler := newAttendanceHandler(st, &stubExtractor{err: extractor.ErrNoEyeRegion}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "no eye region detected in image")
}

func TestAttendanceMark_DimensionMismatch(t *testing.T) {
	st := mock.New()
	seedStudent(t, st, "s-1", "Ada Novak", []float32{1, 0, 0})
	handler := newAttendanceHandler(st, &stubExtractor{embedding: []float32{1, 0}}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	records, _ := st.ListAttendance(context.Background(), "")
	if len(records) != 0 {
		t.Errorf("expected no ledger write on dimension mismatch, got %v", records)
	}
}

func TestAttendanceMark_MissingImage(t *testing.T) {
	handler := newAttendanceHandler(mock.New(), &stubExtractor{}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, nil)
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestAttendanceMark_LedgerFailure(t *testing.T) {
	st := mock.New()
	seedStudent(t, st, "s-1", "Ada Novak", []float32{1, 0, 0})
	st.AppendError = errors.New("disk full")
	handler := newAttendanceHandler(st, &stubExtractor{embedding: []float32{1, 0, 0}}, 0.4)

	req := multipartUpload(t, "/api/v1/attendance/mark", nil, testPNG(t))
	recorder := httptest.NewRecorder()

	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to mark attendance")
}

func TestAttendanceList(t *testing.T) {
	st := mock.New()
	for _, id := range []string{"s-1", "s-2", "s-1"} {
		if err := st.AppendAttendance(context.Background(), id, "2026-08-30 09:00:00"); err != nil {
			t.Fatalf("seeding ledger failed: %v", err)
		}
	}
	handler := newAttendanceHandler(st, &stubExtractor{}, 0.4)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Records []struct {
			ID        int64  `json:"id"`
			StudentID string `json:"student_id"`
			Timestamp string `json:"timestamp"`
		} `json:"records"`
		Count int `json:"count"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Count != 3 {
		t.Fatalf("expected 3 records, got %d", resp.Count)
	}
	if resp.Records[0].ID != 3 {
		t.Errorf("expected newest record first, got id %d", resp.Records[0].ID)
	}
}

func TestAttendanceList_FilterByStudent(t *testing.T) {
	st := mock.New()
	for _, id := range []string{"s-1", "s-2", "s-1"} {
		if err := st.AppendAttendance(context.Background(), id, "2026-08-30 09:00:00"); err != nil {
			t.Fatalf("seeding ledger failed: %v", err)
		}
	}
	handler := newAttendanceHandler(st, &stubExtractor{}, 0.4)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance?student=s-2", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Count int `json:"count"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.Count != 1 {
		t.Errorf("expected 1 record for s-2, got %d", resp.Count)
	}
}

func TestAttendanceList_StoreFailure(t *testing.T) {
	st := mock.New()
	st.ListRecordsErr = errors.New("db gone")
	handler := newAttendanceHandler(st, &stubExtractor{}, 0.4)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list attendance")
}
