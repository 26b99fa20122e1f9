// Package web serves the Stratagem dashboard: the control form, the
// blocking run action, live tool progress over WebSocket, and Markdown
// export of the finished report.
package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nugget/stratagem/internal/agent"
	"github.com/nugget/stratagem/internal/buildinfo"
	"github.com/nugget/stratagem/internal/shell"
	"github.com/nugget/stratagem/internal/target"
	"github.com/nugget/stratagem/internal/tools"
)

// Page text.
const (
	Title       = "Stratagem AI"
	Subtitle    = "Market Intelligence & Competitor Reconnaissance"
	RunLabel    = "Initialize Stratagem 🚀"
	ExportLabel = "📥 Export Dossier (Markdown)"
	DoneLabel   = "✅ Analysis Complete"
)

// Config holds the dependencies for the web server.
type Config struct {
	Shell    *shell.Shell
	Hub      *Hub
	Model    string
	Provider string
	Logger   *slog.Logger
}

// WebServer renders the dashboard and runs submissions through the shell.
type WebServer struct {
	shell     *shell.Shell
	hub       *Hub
	model     string
	provider  string
	templates map[string]*template.Template
	logger    *slog.Logger
	server    *http.Server
}

// NewWebServer creates a WebServer. Templates are parsed immediately
// so syntax errors surface at startup.
func NewWebServer(cfg Config) *WebServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	return &WebServer{
		shell:     cfg.Shell,
		hub:       hub,
		model:     cfg.Model,
		provider:  cfg.Provider,
		templates: loadTemplates(),
		logger:    logger.With("component", "web"),
	}
}

// RegisterRoutes adds the dashboard routes to mux.
func (s *WebServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("GET /ws/progress", s.handleProgress)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed handler wrapped in request logging.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withLogging(mux)
}

// Start serves on addr until ctx is cancelled, then shuts down
// gracefully. Runs in flight are given ten seconds to finish writing.
func (s *WebServer) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr, "model", s.model, "provider", s.provider)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *WebServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// PageData is the template context shared by the index and run pages.
type PageData struct {
	Title       string
	Subtitle    string
	RunLabel    string
	Caption     string
	Model       string
	Name        string
	Objective   target.Objective
	Objectives  []target.Objective
	RunID       string
	ExportLabel string
	DoneLabel   string
	Result      *ResultData

	// Partial is set for htmx requests, which receive a fresh run id
	// out of band.
	Partial bool
}

// ResultData describes the outcome panel under the form.
type ResultData struct {
	State   shell.State
	Warning string
	Error   string

	Name      string
	Objective target.Objective
	Report    *agent.Report
	Filename  string
}

func (s *WebServer) pageData(name string, obj target.Objective) PageData {
	return PageData{
		Title:       Title,
		Subtitle:    Subtitle,
		RunLabel:    RunLabel,
		Caption:     buildinfo.Caption(),
		Model:       s.model,
		Name:        name,
		Objective:   obj,
		Objectives:  target.Objectives(),
		RunID:       uuid.NewString(),
		ExportLabel: ExportLabel,
		DoneLabel:   DoneLabel,
	}
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", "content", s.pageData(target.DefaultName, target.DefaultObjective))
}

// handleRun blocks for the whole run. The run is detached from the
// request context so closing the tab does not abort it.
func (s *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("target")
	objective := r.PostFormValue("objective")

	runID := r.PostFormValue("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		runID = uuid.NewString()
	}

	ctx := context.WithoutCancel(r.Context())
	ctx = tools.WithRunID(ctx, runID)
	ctx = tools.WithNotifier(ctx, s.hub)

	out := s.shell.Submit(ctx, name, objective)

	obj, err := target.ParseObjective(objective)
	if err != nil {
		obj = target.DefaultObjective
	}
	data := s.pageData(name, obj)
	res := &ResultData{
		State:     out.State,
		Warning:   out.Warning,
		Name:      out.Spec.Name,
		Objective: out.Spec.Objective,
		Report:    out.Report,
		Filename:  out.Filename,
	}
	data.Result = res
	data.Partial = r.Header.Get("HX-Request") == "true"

	status := http.StatusOK
	if out.State == shell.Error {
		res.Error = out.Err.Error()
		switch {
		case errors.Is(out.Err, shell.ErrBusy):
			status = http.StatusConflict
		case out.Spec.Name == "":
			status = http.StatusBadRequest
		default:
			status = http.StatusBadGateway
		}
		s.logger.Error("run failed", "run_id", runID, "target", name, "error", out.Err)
	}

	s.render(w, r, status, "run.html", "result", data)
}

// encodeExport packs report text for the export form. Browsers rewrite
// newlines in submitted form values, so the text travels base64-encoded.
func encodeExport(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

func decodeExport(payload string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", fmt.Errorf("decode export payload: %w", err)
	}
	return string(b), nil
}

// handleExport echoes the posted report back as a Markdown attachment.
// Nothing is stored server-side.
func (s *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	filename := target.ExportFilename(r.PostFormValue("target"))
	report, err := decodeExport(r.PostFormValue("report"))
	if err != nil {
		s.logger.Warn("rejected export", "error", err)
		http.Error(w, "bad report payload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", target.ExportContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write([]byte(report)); err != nil {
		s.logger.Debug("failed to write export", "error", err)
	}
}

func (s *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	body := map[string]any{
		"status":   "ok",
		"build":    info,
		"model":    s.model,
		"provider": s.provider,
		"uptime":   buildinfo.Uptime().Round(time.Second).String(),
	}
	if s.shell != nil {
		body["state"] = s.shell.State().String()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}
