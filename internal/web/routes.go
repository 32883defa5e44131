package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/store"
	"github.com/ocularid/eyemark/internal/web/handlers"
)

func (s *Server) setupRoutes(st store.IdentityStore, marker *attendance.Marker, registrar *attendance.Registrar, ex handlers.Extractor, mediaDir string) {
	studentsHandler := handlers.NewStudentsHandler(registrar, st, ex, mediaDir)
	attendanceHandler := handlers.NewAttendanceHandler(marker, st, ex, mediaDir)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Students
		r.Post("/students", studentsHandler.Register)
		r.Get("/students", studentsHandler.List)

		// Attendance
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)
	})
}
