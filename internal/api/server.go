// Package api serves the controller state to the dashboard.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"tailscale.com/tsweb"

	"github.com/banshee-data/tripwire/internal/httputil"
	"github.com/banshee-data/tripwire/internal/machine"
	"github.com/banshee-data/tripwire/internal/monitoring"
)

// ANSI escape codes for request logs
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// StateReader is the read side of machine.Bridge.
type StateReader interface {
	Snapshot() machine.MachineState
}

// Server answers dashboard requests from a StateReader.
type Server struct {
	state StateReader
}

// NewServer returns a Server reading from state.
func NewServer(state StateReader) *Server {
	return &Server{state: state}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration. The dashboard
// polls twice a second, so successful requests are only logged in verbose
// mode.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		logf := monitoring.Debugf
		if lrw.statusCode >= 400 {
			logf = monitoring.Logf
		}
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// CORS allows any origin to read the API; the dashboard is served from a
// different port.
func CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(next)
}

// ServeMux returns a mux with the /status and /healthz routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.showStatus)
	mux.HandleFunc("/healthz", s.showHealth)
	return mux
}

// Handler wraps mux with CORS and request logging.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return LoggingMiddleware(CORS(mux))
}

// showStatus always answers GET with the best known state. A dead serial link
// is reported through the link field rather than an error status.
func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	httputil.WriteJSONOK(w, s.state.Snapshot())
}

type healthResponse struct {
	Status    string             `json:"status"`
	Link      machine.LinkStatus `json:"link"`
	UpdatedAt time.Time          `json:"updatedAt,omitzero"`
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.state.Snapshot()
	httputil.WriteJSONOK(w, healthResponse{Status: "ok", Link: snap.Link, UpdatedAt: snap.UpdatedAt})
}

// AttachAdminRoutes mounts a state view under /debug/. These routes are
// accessible only over localhost or Tailscale.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Serial link", func() any { return s.state.Snapshot().Link })
	debug.Handle("state", "current machine state", http.HandlerFunc(s.showStatus))
}
