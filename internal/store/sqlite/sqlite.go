// Package sqlite provides the default SQLite-backed IdentityStore.
//
// The schema mirrors the documented storage format: embeddings are BLOBs of
// concatenated little-endian 32-bit floats, attendance timestamps are
// "YYYY-MM-DD HH:MM:SS" strings.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ocularid/eyemark/internal/store"
)

// Store implements store.IdentityStore on a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	// Foreign keys stay off: the attendance ledger intentionally accepts
	// ids that no longer resolve to a student row.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection so an
	// upsert and a concurrent snapshot read never interleave mid-row.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		department TEXT NOT NULL,
		embedding  BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		timestamp  TEXT NOT NULL,
		FOREIGN KEY (student_id) REFERENCES students (id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert inserts or replaces the student row keyed by ID. The write is a
// single statement, so readers see either the old row or the new one.
func (s *Store) Upsert(ctx context.Context, student store.Student) error {
	if len(student.Embedding) == 0 {
		return errors.New("embedding must not be empty")
	}

	// The registry holds vectors of one dimensionality; a row of a
	// different length would poison every later search.
	var existing int
	err := s.db.QueryRowContext(ctx, "SELECT length(embedding) FROM students WHERE id != ? LIMIT 1", student.ID).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First row establishes the dimensionality.
	case err != nil:
		return fmt.Errorf("checking registry dimension: %w", err)
	case existing != len(student.Embedding)*4:
		return fmt.Errorf("%w: registry holds %d-byte blobs, got %d floats",
			store.ErrDimensionConflict, existing, len(student.Embedding))
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO students (id, name, department, embedding) VALUES (?, ?, ?, ?)",
		student.ID, student.Name, student.Department, store.EncodeEmbedding(student.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upserting student %s: %w", student.ID, err)
	}
	return nil
}

// ListAll returns every enrolled student in insertion order. Insertion order
// is what makes nearest-neighbor tie-breaking reproducible across runs.
func (s *Store) ListAll(ctx context.Context) ([]store.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, department, embedding FROM students ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	defer rows.Close()

	var students []store.Student
	for rows.Next() {
		var st store.Student
		var blob []byte
		if err := rows.Scan(&st.ID, &st.Name, &st.Department, &blob); err != nil {
			return nil, fmt.Errorf("scanning student row: %w", err)
		}
		st.Embedding, err = store.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("student %s: %w", st.ID, err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// AppendAttendance inserts a ledger record. The student ID is not validated
// against the students table.
func (s *Store) AppendAttendance(ctx context.Context, studentID, timestamp string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attendance (student_id, timestamp) VALUES (?, ?)",
		studentID, timestamp)
	if err != nil {
		return fmt.Errorf("appending attendance for %s: %w", studentID, err)
	}
	return nil
}

// ListAttendance returns ledger records newest first. An empty studentID
// returns all records.
func (s *Store) ListAttendance(ctx context.Context, studentID string) ([]store.AttendanceRecord, error) {
	query := "SELECT id, student_id, timestamp FROM attendance ORDER BY id DESC"
	args := []any{}
	if studentID != "" {
		query = "SELECT id, student_id, timestamp FROM attendance WHERE student_id = ? ORDER BY id DESC"
		args = append(args, studentID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
