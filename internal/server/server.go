// Package server implements the read-only control-plane HTTP API for
// the LACP daemon: per-port and per-LAG status, and a gRPC health
// check for orchestrators that expect one (spec.md's core is silent on
// an API surface; this is ambient the way every daemon in the corpus
// ships one — grounded on internal/server/server.go's BFDServer shape,
// generalized from a ConnectRPC service to plain JSON since LACP has
// no proto contract of its own; see DESIGN.md).
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"connectrpc.com/grpchealth"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// ErrPortNotFound indicates the requested port handle is not managed
// by the Engine.
var ErrPortNotFound = errors.New("port not found")

// StatusServer serves read-only snapshots of Engine state over HTTP.
// Every handler calls straight into lacp.Engine's exported Snapshot/
// Ports/LAGs methods, which are safe to call from this goroutine while
// the Engine's own Run loop processes events concurrently.
type StatusServer struct {
	engine *lacp.Engine
	logger *slog.Logger
}

// New builds the StatusServer's http.Handler, mounted at the paths
// below plus a grpc.health.v1 checker reporting SERVING once called.
func New(engine *lacp.Engine, logger *slog.Logger) http.Handler {
	s := &StatusServer{engine: engine, logger: logger.With(slog.String("component", "server"))}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/ports", s.handleListPorts)
	mux.HandleFunc("GET /v1/ports/{handle}", s.handleGetPort)
	mux.HandleFunc("GET /v1/lags", s.handleListLAGs)

	checker := grpchealth.NewStaticChecker(grpchealth.HealthV1ServiceName)
	mux.Handle(grpchealth.NewHandler(checker))

	return LoggingMiddleware(s.logger)(RecoveryMiddleware(s.logger)(mux))
}

func (s *StatusServer) handleListPorts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.engine.Ports())
}

func (s *StatusServer) handleGetPort(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("handle")
	h, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, s.logger, http.StatusBadRequest, err)
		return
	}

	snap, ok := s.engine.Snapshot(lacp.PortHandle(h))
	if !ok {
		writeError(w, s.logger, http.StatusNotFound, ErrPortNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, snap)
}

func (s *StatusServer) handleListLAGs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.engine.LAGs())
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response failed", slog.String("error", err.Error()))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	writeJSON(w, logger, status, errorBody{Error: err.Error()})
}
