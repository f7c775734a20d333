package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/smart-presence/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	statusHandler := handlers.NewStatusHandler(s.engine)
	controlHandler := handlers.NewControlHandler(s.engine)
	settingsHandler := handlers.NewSettingsHandler(s.store, s.settings)
	schedulesHandler := handlers.NewSchedulesHandler(s.store)
	attendanceHandler := handlers.NewAttendanceHandler(s.store)
	camerasHandler := handlers.NewCamerasHandler(s.store)
	streamHandler := handlers.NewStreamHandler(s.engine)
	eventsHandler := handlers.NewEventsHandler(s.engine, s.log)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Engine status and control
		r.Get("/status", statusHandler.Get)
		r.Post("/control/start", controlHandler.Start)
		r.Post("/control/stop", controlHandler.Stop)
		r.Post("/control/restart", controlHandler.Restart)
		r.Put("/control/mode", controlHandler.SetMode)

		// Settings (hot-swapped into the running engine)
		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		// Class timetable
		r.Get("/schedules", schedulesHandler.List)
		r.Post("/schedules", schedulesHandler.Create)
		r.Put("/schedules/{id}", schedulesHandler.Update)
		r.Delete("/schedules/{id}", schedulesHandler.Delete)

		// Attendance log
		r.Get("/attendance/recent", attendanceHandler.Recent)

		// Cameras
		r.Get("/cameras", camerasHandler.List)

		// Live attendance events (websocket)
		r.Get("/events", eventsHandler.Serve)
	})

	// Live view
	s.router.Get("/stream", streamHandler.Live)
	s.router.Get("/snapshot", streamHandler.Snapshot)

	// Prometheus metrics
	if s.registry != nil {
		s.router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves a minimal landing page pointing at the live view and
// the API.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Smart Presence</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        img { max-width: 90vw; border-radius: 8px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Smart Presence</h1>
        <img src="/stream" alt="live view">
        <p>Engine status at <a href="/api/v1/status">/api/v1/status</a>, attendance at <a href="/api/v1/attendance/recent">/api/v1/attendance/recent</a></p>
    </div>
</body>
</html>`))
}
