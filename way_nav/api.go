package way_nav

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// commandTimeout bounds how long a request waits for the tick loop.
const commandTimeout = 2 * time.Second

// APIServer exposes the navigator command surface over HTTP.
type APIServer struct {
	cfg    APIConfig
	nav    *Navigator
	logger *zap.Logger
	router *mux.Router
}

// NewAPIServer builds the router. Handlers never touch navigator state
// directly; they post commands for the tick loop.
func NewAPIServer(cfg APIConfig, nav *Navigator, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &APIServer{cfg: cfg, nav: nav, logger: logger, router: mux.NewRouter()}

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/targets", s.handleTargets).Methods(http.MethodGet)
	s.router.HandleFunc("/destination", s.handleSetDestination).Methods(http.MethodPost)
	s.router.HandleFunc("/destination", s.handleClearDestination).Methods(http.MethodDelete)
	s.router.HandleFunc("/recenter", s.handleRecenter).Methods(http.MethodPost)
	s.router.HandleFunc("/scan/{action:start|stop}", s.handleScan).Methods(http.MethodPost)
	s.router.HandleFunc("/rescan", s.handleRescan).Methods(http.MethodPost)
	return s
}

// Handler returns the HTTP handler.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Serve listens on cfg.Addr until ctx is done.
func (s *APIServer) Serve(ctx context.Context) error {
	server := &http.Server{Addr: s.cfg.Addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
	return serveHTTP(ctx, server)
}

type destinationRequest struct {
	Name string   `json:"name"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Z    *float64 `json:"z"`
}

type recenterRequest struct {
	Target string `json:"target"`
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.nav.Status())
}

func (s *APIServer) handleTargets(w http.ResponseWriter, r *http.Request) {
	if s.nav.catalog == nil {
		writeJSON(w, http.StatusOK, []TargetRecord{})
		return
	}
	writeJSON(w, http.StatusOK, s.nav.catalog.Records())
}

func (s *APIServer) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var cmd func(n *Navigator) error
	switch {
	case req.Name != "":
		cmd = func(n *Navigator) error { return n.SetDestinationByName(req.Name) }
	case req.X != nil && req.Z != nil:
		y := 0.0
		if req.Y != nil {
			y = *req.Y
		}
		goal := mgl64.Vec3{*req.X, y, *req.Z}
		cmd = func(n *Navigator) error { return n.SetDestination(goal) }
	default:
		writeError(w, http.StatusBadRequest, errors.New("need name or x/z"))
		return
	}
	s.run(w, r, cmd)
}

func (s *APIServer) handleClearDestination(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(n *Navigator) error {
		n.ClearDestination()
		return nil
	})
}

func (s *APIServer) handleRecenter(w http.ResponseWriter, r *http.Request) {
	var req recenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, errors.New("target is required"))
		return
	}
	s.run(w, r, func(n *Navigator) error {
		n.SetRecenterTarget(req.Target)
		return nil
	})
}

func (s *APIServer) handleScan(w http.ResponseWriter, r *http.Request) {
	start := mux.Vars(r)["action"] == "start"
	s.run(w, r, func(n *Navigator) error {
		if start {
			n.StartScanning()
		} else {
			n.StopScanning()
		}
		return nil
	})
}

func (s *APIServer) handleRescan(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, func(n *Navigator) error {
		n.Rescan()
		return nil
	})
}

// run posts cmd to the tick loop and waits for its result. The status
// snapshot only reflects the command after the tick publishes.
func (s *APIServer) run(w http.ResponseWriter, r *http.Request, cmd func(n *Navigator) error) {
	done := make(chan error, 1)
	if err := s.nav.Post(func(n *Navigator) { done <- cmd(n) }); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	select {
	case err := <-done:
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case <-ctx.Done():
		writeError(w, http.StatusGatewayTimeout, ctx.Err())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoPose):
		return http.StatusAccepted
	case errors.Is(err, ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnreachable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
