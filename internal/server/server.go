// Package server exposes an engine over HTTP.
//
// Routes:
//
//	POST /invoke           ritual text in, outcome out (always 200)
//	GET  /rituals          catalog listing
//	GET  /rituals/{name}   one template
//	POST /rituals/{name}   render and execute a template
//	GET  /metrics          Prometheus metrics for the engine
//	GET  /healthz          liveness
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/codecraft/internal/engine"
	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
	"github.com/roach88/codecraft/internal/ritual"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// InvokeRequest is the POST /invoke body.
type InvokeRequest struct {
	Text string `json:"text"`
}

// TemplateSummary is one entry of the GET /rituals listing.
type TemplateSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Server serves one engine.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for eng.
func NewHandler(eng *engine.Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{engine: eng, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Post("/invoke", s.invoke)
	r.Get("/rituals", s.listRituals)
	r.Get("/rituals/{name}", s.getRitual)
	r.Post("/rituals/{name}", s.executeRitual)
	r.Handle("/metrics", promhttp.HandlerFor(eng.Metrics().Registry, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invoke accepts either a JSON {"text": ...} body or raw ritual text.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req InvokeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		text = req.Text
	}

	outcome := s.engine.Invoke(r.Context(), text)
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) listRituals(w http.ResponseWriter, r *http.Request) {
	templates := s.engine.Catalog().Templates()
	list := make([]TemplateSummary, len(templates))
	for i, t := range templates {
		list[i] = TemplateSummary{Name: t.Name, Description: t.Description}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) getRitual(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.engine.Catalog().Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, tmpl)
}

// executeRitual takes an optional JSON object of template parameters.
func (s *Server) executeRitual(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	params := ir.Object{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid parameters: "+err.Error())
			return
		}
	}

	outcome, err := s.engine.ExecuteRitual(r.Context(), name, params)
	switch {
	case errors.Is(err, ritual.ErrUnknownRitual):
		s.writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("ritual render failed", "ritual", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, outcome)
	}
}

// writeJSON encodes v before touching the response, so an unencodable
// value becomes a 500 instead of an empty 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
