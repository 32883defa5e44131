// Package postgres provides a PostgreSQL/pgvector-backed IdentityStore for
// deployments that already run Postgres. The embedding column is a pgvector
// vector(N) fixed at migration time, so the database itself enforces the
// registry's dimensionality.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/ocularid/eyemark/internal/config"
	"github.com/ocularid/eyemark/internal/store"
)

// Store implements store.IdentityStore on PostgreSQL.
type Store struct {
	db  *sql.DB
	dim int
}

// New connects to PostgreSQL and migrates the schema. The dim parameter
// fixes the vector column width and must match the extractor's output.
func New(cfg *config.DatabaseConfig, dim int) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, dim: dim}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	createStudents := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS students (
			seq        BIGSERIAL,
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			department TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, s.dim)
	if _, err := s.db.ExecContext(ctx, createStudents); err != nil {
		return fmt.Errorf("creating students table: %w", err)
	}

	createAttendance := `
		CREATE TABLE IF NOT EXISTS attendance (
			id         BIGSERIAL PRIMARY KEY,
			student_id TEXT NOT NULL,
			timestamp  TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, createAttendance); err != nil {
		return fmt.Errorf("creating attendance table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id)"); err != nil {
		return fmt.Errorf("creating attendance index: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the student row keyed by ID. The original seq
// is preserved on replace, keeping snapshot order stable.
func (s *Store) Upsert(ctx context.Context, student store.Student) error {
	if len(student.Embedding) == 0 {
		return errors.New("embedding must not be empty")
	}
	if len(student.Embedding) != s.dim {
		return fmt.Errorf("%w: column is vector(%d), got %d floats",
			store.ErrDimensionConflict, s.dim, len(student.Embedding))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, name, department, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, department = EXCLUDED.department, embedding = EXCLUDED.embedding
	`, student.ID, student.Name, student.Department, pgvector.NewVector(student.Embedding))
	if err != nil {
		if strings.Contains(err.Error(), "expected") && strings.Contains(err.Error(), "dimensions") {
			return fmt.Errorf("%w: %v", store.ErrDimensionConflict, err)
		}
		return fmt.Errorf("upserting student %s: %w", student.ID, err)
	}
	return nil
}

// ListAll returns every enrolled student in first-registration order.
func (s *Store) ListAll(ctx context.Context) ([]store.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, department, embedding FROM students ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	defer rows.Close()

	var students []store.Student
	for rows.Next() {
		var st store.Student
		var vec pgvector.Vector
		if err := rows.Scan(&st.ID, &st.Name, &st.Department, &vec); err != nil {
			return nil, fmt.Errorf("scanning student row: %w", err)
		}
		st.Embedding = vec.Slice()
		students = append(students, st)
	}
	return students, rows.Err()
}

// AppendAttendance inserts a ledger record without checking the student id.
func (s *Store) AppendAttendance(ctx context.Context, studentID, timestamp string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attendance (student_id, timestamp) VALUES ($1, $2)",
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
		query = "SELECT id, student_id, timestamp FROM attendance WHERE student_id = $1 ORDER BY id DESC"
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

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
