// Package web serves the topic tracker and revision scheduler as HTML forms.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studydesk/internal/desk"
)

//go:embed templates/*.html
var assetsFS embed.FS

// maxImportBytes bounds the size of an uploaded CSV.
const maxImportBytes = 10 << 20

// Recorder runs a mutating request as one recorded operation.
type Recorder interface {
	Record(operation, parameters string, fn func() error) error
}

type directRecorder struct{}

func (directRecorder) Record(_, _ string, fn func() error) error { return fn() }

// Server renders the topic and revision pages.
type Server struct {
	topics    *desk.TopicService
	revisions *desk.RevisionService
	recorder  Recorder
	clock     desk.Clock
	logger    desk.Logger
	tmpl      *template.Template
}

// NewServer parses the embedded templates and returns a Server. A nil
// recorder runs mutations without recording them.
func NewServer(topics *desk.TopicService, revisions *desk.RevisionService, recorder Recorder, clock desk.Clock, logger desk.Logger) (*Server, error) {
	if recorder == nil {
		recorder = directRecorder{}
	}
	if clock == nil {
		clock = desk.RealClock{}
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format(desk.DateLayout) },
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		topics:    topics,
		revisions: revisions,
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
		tmpl:      tmpl,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /topics", s.handleTopics)
	mux.HandleFunc("POST /topics", s.handleTopicAdd)
	mux.HandleFunc("POST /topics/remove", s.handleTopicRemove)
	mux.HandleFunc("POST /topics/move", s.handleTopicMove)
	mux.HandleFunc("POST /topics/import", s.handleTopicImport)
	mux.HandleFunc("GET /topics/export.csv", s.handleTopicExport)
	mux.HandleFunc("GET /revisions", s.handleRevisions)
	mux.HandleFunc("POST /revisions", s.handleRevisionAdd)
	mux.HandleFunc("POST /revisions/remove", s.handleRevisionRemove)
	mux.HandleFunc("GET /revisions/export.csv", s.handleRevisionExport)
	return mux
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down web server: %w", err)
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/topics", http.StatusSeeOther)
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		s.logger.Error("rendering template", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

// redirectWithNotice sends the browser to path with a flash notice and
// any extra query values.
func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string, extra url.Values) {
	q := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if notice != "" {
		q.Set("notice", notice)
	}
	target := path
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// userError reports whether err comes from bad input rather than a failure
// of the store.
func userError(err error) bool {
	for _, target := range []error{
		desk.ErrDuplicateName,
		desk.ErrNotFound,
		desk.ErrInvalidPosition,
		desk.ErrInvalidCategory,
		desk.ErrEmptyName,
		desk.ErrMalformedRow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// finishMutation redirects with a notice for user errors and success, and
// answers 500 for everything else.
func (s *Server) finishMutation(w http.ResponseWriter, r *http.Request, path string, extra url.Values, success string, err error) {
	if err == nil {
		redirectWithNotice(w, r, path, success, extra)
		return
	}
	if userError(err) {
		redirectWithNotice(w, r, path, err.Error(), extra)
		return
	}
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func attachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
