package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ocularid/eyemark/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "eyemark.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsert_InsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, store.Student{
		ID: "S1", Name: "Ana", Department: "CS",
		Embedding: []float32{1.0, 0.0, 0.0},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	students, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("expected 1 student, got %d", len(students))
	}
	if students[0].ID != "S1" || students[0].Name != "Ana" || students[0].Department != "CS" {
		t.Errorf("unexpected student: %+v", students[0])
	}
	if len(students[0].Embedding) != 3 || students[0].Embedding[0] != 1.0 {
		t.Errorf("unexpected embedding: %v", students[0].Embedding)
	}
}

func TestUpsert_ReplacesExistingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := store.Student{ID: "S1", Name: "Ana", Department: "CS", Embedding: []float32{1, 0, 0}}
	second := store.Student{ID: "S1", Name: "Ana Nova", Department: "EE", Embedding: []float32{0, 1, 0}}

	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	students, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("expected exactly 1 row after re-registration, got %d", len(students))
	}
	if students[0].Name != "Ana Nova" {
		t.Errorf("expected replaced name, got %q", students[0].Name)
	}
	if students[0].Embedding[1] != 1 {
		t.Errorf("expected replaced embedding, got %v", students[0].Embedding)
	}
}

func TestUpsert_EmptyEmbedding(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(context.Background(), store.Student{ID: "S1", Name: "Ana", Department: "CS"})
	if err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestUpsert_DimensionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, store.Student{ID: "S1", Name: "Ana", Department: "CS", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	err := s.Upsert(ctx, store.Student{ID: "S2", Name: "Bob", Department: "CS", Embedding: []float32{1, 0}})
	if !errors.Is(err, store.ErrDimensionConflict) {
		t.Errorf("expected ErrDimensionConflict, got %v", err)
	}
}

func TestUpsert_SameIDMayChangeDimensionWhenAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, store.Student{ID: "S1", Name: "Ana", Department: "CS", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	// The only row can be replaced with a different dimensionality, e.g.
	// after an extractor model change with a registry of one.
	if err := s.Upsert(ctx, store.Student{ID: "S1", Name: "Ana", Department: "CS", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("re-registering sole row with new dimension failed: %v", err)
	}
}

func TestListAll_EmptyRegistry(t *testing.T) {
	s := newTestStore(t)

	students, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(students) != 0 {
		t.Errorf("expected empty registry, got %d students", len(students))
	}
}

func TestListAll_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"S3", "S1", "S2"} {
		if err := s.Upsert(ctx, store.Student{ID: id, Name: id, Department: "CS", Embedding: []float32{1, 0}}); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}

	students, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := []string{students[0].ID, students[1].ID, students[2].ID}
	expected := []string{"S3", "S1", "S2"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected insertion order %v, got %v", expected, got)
		}
	}
}

func TestListAll_CorruptBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eyemark.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer s.Close()

	// Plant a truncated blob behind the store's back.
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open raw handle: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Exec(
		"INSERT INTO students (id, name, department, embedding) VALUES (?, ?, ?, ?)",
		"S1", "Ana", "CS", []byte{0x00, 0x00, 0x80}); err != nil {
		t.Fatalf("failed to plant corrupt row: %v", err)
	}

	_, err = s.ListAll(context.Background())
	if !errors.Is(err, store.ErrCorruptEmbedding) {
		t.Errorf("expected ErrCorruptEmbedding, got %v", err)
	}
}

func TestAppendAttendance_AppendOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.AppendAttendance(ctx, "S1", "2026-08-30 09:00:00"); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	records, err := s.ListAttendance(ctx, "S1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Surrogate keys are monotonic; newest first.
	if records[0].ID <= records[1].ID || records[1].ID <= records[2].ID {
		t.Errorf("expected descending record ids, got %d, %d, %d",
			records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestAppendAttendance_AcceptsOrphanID(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendAttendance(context.Background(), "ghost", "2026-08-30 09:00:00"); err != nil {
		t.Errorf("ledger should accept unknown student ids, got %v", err)
	}
}

func TestListAttendance_FilterByStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.AppendAttendance(ctx, "S1", "2026-08-30 09:00:00")
	_ = s.AppendAttendance(ctx, "S2", "2026-08-30 09:01:00")
	_ = s.AppendAttendance(ctx, "S1", "2026-08-30 09:02:00")

	all, err := s.ListAttendance(ctx, "")
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records total, got %d", len(all))
	}

	s1, err := s.ListAttendance(ctx, "S1")
	if err != nil {
		t.Fatalf("list S1 failed: %v", err)
	}
	if len(s1) != 2 {
		t.Errorf("expected 2 records for S1, got %d", len(s1))
	}
}
