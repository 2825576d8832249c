// Package httpapi exposes the processing and distribution services over
// HTTP: a JSON API, file downloads, the OAuth callback page and the
// websocket notification endpoint.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appdist "github.com/milordsutrix/tool-tubecutter/application/distribution"
	"github.com/milordsutrix/tool-tubecutter/application/process"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
)

// Options carries the tunables the HTTP layer needs from configuration
type Options struct {
	WorkDir        string
	MaxUploadBytes int64
	RequestsPerMin int
}

// Server wires the application services into an HTTP handler tree
type Server struct {
	process *process.Service
	uploads *appdist.UploadService
	hub     http.Handler
	opts    Options
	logger  zerolog.Logger
}

// NewServer creates the HTTP adapter. hub serves the websocket
// notification endpoint and is mounted as-is.
func NewServer(proc *process.Service, uploads *appdist.UploadService, hub http.Handler, opts Options) *Server {
	return &Server{
		process: proc,
		uploads: uploads,
		hub:     hub,
		opts:    opts,
		logger:  logging.WithComponent("httpapi"),
	}
}

// Router assembles the middleware stack and the route tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", s.hub)

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.opts.RequestsPerMin, time.Minute))

		r.Post("/youtube/validate", s.handleValidate)
		r.Post("/process", s.handleProcess)
		r.Post("/upload", s.handleUpload)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/download/{selectionID}", s.handleDownload)
		r.Get("/download-all/{videoID}", s.handleDownloadAll)
		r.Post("/drive/auth", s.handleDriveAuth)
		r.Get("/drive/callback", s.handleDriveCallback)
	})

	return r
}
