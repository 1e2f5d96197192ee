// Package devbackend serves the dataset backend API from a local store so
// the dashboard can run and be tested without the ML service.
package devbackend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mldash/domain/dataset"
	"mldash/internal/errors"
	"mldash/internal/logging"
	"mldash/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSize       = 64 << 20
	uploadPreviewRows   = 10
	defaultPreviewLimit = 100
)

// Server is the development backend
type Server struct {
	router       *chi.Mux
	store        ports.DatasetStore
	previewLimit int
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewServer wires the backend routes over store. previewLimit caps the
// rows returned by a dataset preview.
func NewServer(store ports.DatasetStore, previewLimit int, log logrus.FieldLogger) *Server {
	if previewLimit <= 0 {
		previewLimit = defaultPreviewLimit
	}
	s := &Server{
		router:       chi.NewRouter(),
		store:        store,
		previewLimit: previewLimit,
		log:          logging.Component(log, "devbackend"),
		now:          time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

// requestLogger logs one line per request through the server's logger
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       path,
			"status":     status,
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/upload/list", s.handleList)
		r.Get("/upload/{id}", s.handleGet)
		r.Put("/upload/{id}", s.handleReplace)
		r.Delete("/upload/{id}", s.handleDelete)
		r.Post("/clean", s.handleClean)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("development backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset.ListResponse{Success: true, Datasets: list})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rows := ds.Rows[:min(s.previewLimit, len(ds.Rows))]
	if rows == nil {
		rows = []dataset.Row{}
	}
	writeJSON(w, http.StatusOK, dataset.PreviewResponse{
		Success: true,
		Dataset: ds.Meta,
		Preview: rows,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithField("dataset_id", id).Info("dataset deleted")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Dataset deleted"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	stored, err := ImportFile(r.Context(), s.store, header.Filename, file, s.now(), s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}
	meta := stored.Meta
	id := meta.ID

	s.log.WithFields(logrus.Fields{"dataset_id": id, "rows": meta.Rows, "columns": meta.Columns}).Info("dataset uploaded")
	writeJSON(w, http.StatusOK, dataset.UploadResponse{
		Success:  true,
		Message:  "File uploaded successfully",
		FileID:   id,
		FileName: meta.FileName,
		Rows:     meta.Rows,
		Columns:  meta.Columns,
		Preview:  stored.Rows[:min(uploadPreviewRows, len(stored.Rows))],
	})
}

// handleReplace overwrites the rows of an existing dataset with a new file,
// simulating a dataset that changed on the backend.
func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	rows, err := ReplaceFile(r.Context(), s.store, id, header.Filename, file, s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{"dataset_id": id, "rows": rows}).Info("dataset rows replaced")
	writeJSON(w, http.StatusOK, dataset.UploadResponse{
		Success: true,
		Message: "Dataset replaced",
		FileID:  id,
		Rows:    rows,
	})
}

// handleClean validates the request but performs no cleaning; that runs on
// the real ML backend only.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req dataset.CleaningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.InvalidInput("invalid cleaning request body"))
		return
	}
	if _, err := s.store.Get(r.Context(), req.FileID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNotImplemented, map[string]string{
		"detail": "cleaning is not available on the development backend",
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	detail := err.Error()
	var appErr *errors.AppError
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		detail = appErr.Message
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
