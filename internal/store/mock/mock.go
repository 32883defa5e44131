// Package mock provides an in-memory IdentityStore for testing.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ocularid/eyemark/internal/store"
)

// Store is an in-memory implementation of store.IdentityStore.
type Store struct {
	mu       sync.RWMutex
	order    []string // insertion order of student ids
	students map[string]store.Student
	records  []store.AttendanceRecord
	nextID   int64
	closed   bool

	// Error injection
	UpsertError    error
	ListAllError   error
	AppendError    error
	ListRecordsErr error
}

// New creates an empty mock store.
func New() *Store {
	return &Store{
		students: make(map[string]store.Student),
		nextID:   1,
	}
}

// Upsert inserts or replaces a student, preserving first-insertion order.
func (m *Store) Upsert(ctx context.Context, student store.Student) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	if len(student.Embedding) == 0 {
		return errors.New("embedding must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("store is closed")
	}
	for id, existing := range m.students {
		if id != student.ID && len(existing.Embedding) != len(student.Embedding) {
			return fmt.Errorf("%w: registry holds %d floats, got %d",
				store.ErrDimensionConflict, len(existing.Embedding), len(student.Embedding))
		}
	}
	if _, ok := m.students[student.ID]; !ok {
		m.order = append(m.order, student.ID)
	}
	m.students[student.ID] = student
	return nil
}

// ListAll returns students in first-insertion order.
func (m *Store) ListAll(ctx context.Context) ([]store.Student, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	students := make([]store.Student, 0, len(m.order))
	for _, id := range m.order {
		students = append(students, m.students[id])
	}
	return students, nil
}

// AppendAttendance appends a ledger record with a monotonic id.
func (m *Store) AppendAttendance(ctx context.Context, studentID, timestamp string) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, store.AttendanceRecord{
		ID:        m.nextID,
		StudentID: studentID,
		Timestamp: timestamp,
	})
	m.nextID++
	return nil
}

// ListAttendance returns records newest first, optionally filtered by student.
func (m *Store) ListAttendance(ctx context.Context, studentID string) ([]store.AttendanceRecord, error) {
	if m.ListRecordsErr != nil {
		return nil, m.ListRecordsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []store.AttendanceRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if studentID == "" || m.records[i].StudentID == studentID {
			records = append(records, m.records[i])
		}
	}
	return records, nil
}

// Close marks the store closed.
func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
