// Package store defines the durable registry of enrolled students and the
// append-only attendance ledger, with interchangeable SQLite and PostgreSQL
// backends.
package store

import (
	"context"
	"errors"
)

// TimestampLayout is the wall-clock format used for attendance records.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrCorruptEmbedding is returned when a stored embedding blob cannot be
// decoded as a sequence of little-endian 32-bit floats.
var ErrCorruptEmbedding = errors.New("corrupt embedding blob")

// ErrDimensionConflict is returned by Upsert when the new embedding's
// dimensionality differs from the registry's established dimensionality.
var ErrDimensionConflict = errors.New("embedding dimension conflicts with registry")

// Student is an enrolled identity. The embedding dimensionality is fixed
// across all rows; the store rejects writes that would mix dimensions.
type Student struct {
	ID         string
	Name       string
	Department string
	Embedding  []float32
}

// AttendanceRecord is one append-only ledger entry. Records are never
// updated or deleted, and the same student may appear any number of times.
type AttendanceRecord struct {
	ID        int64
	StudentID string
	Timestamp string // TimestampLayout, second granularity
}

// IdentityStore is the persistence boundary for students and attendance.
type IdentityStore interface {
	// Upsert inserts or atomically replaces the student row keyed by ID.
	// Re-registering an existing ID silently supersedes its embedding.
	Upsert(ctx context.Context, student Student) error

	// ListAll returns a full snapshot of enrolled students. An empty slice
	// is the valid "no students enrolled" state, not an error.
	ListAll(ctx context.Context) ([]Student, error)

	// AppendAttendance inserts a new ledger record. The student ID is not
	// checked against the students table; the ledger is intentionally
	// permissive about orphaned ids.
	AppendAttendance(ctx context.Context, studentID, timestamp string) error

	// ListAttendance returns ledger records, newest first. An empty
	// studentID returns all records.
	ListAttendance(ctx context.Context, studentID string) ([]AttendanceRecord, error)

	// Close releases the underlying database handle.
	Close() error
}
