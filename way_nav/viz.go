package way_nav

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"time"
)

// VizConfig controls the optional expvar endpoint used for live plotting.
type VizConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// VizMetrics exposes live input/output values via expvar.
type VizMetrics struct {
	server *http.Server
	input  *expvar.Map
	output *expvar.Map
}

// expvar names are process-global, so the maps are created once.
var (
	vizInput  = expvar.NewMap("wayfind_input")
	vizOutput = expvar.NewMap("wayfind_output")
)

// StartViz prepares an HTTP server exposing /debug/vars. It returns nil when
// disabled. The server runs in Serve.
func StartViz(cfg VizConfig) (*VizMetrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7070"
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	return &VizMetrics{
		server: &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		input:  vizInput,
		output: vizOutput,
	}, nil
}

// Serve runs the metrics server until ctx is done.
func (v *VizMetrics) Serve(ctx context.Context) error {
	return serveHTTP(ctx, v.server)
}

// UpdateInput publishes the latest tracked pose.
func (v *VizMetrics) UpdateInput(in TickInput) {
	if v == nil {
		return
	}
	setFloat(v.input, "x", in.Camera.Position.X())
	setFloat(v.input, "y", in.Camera.Position.Y())
	setFloat(v.input, "z", in.Camera.Position.Z())
	setFloat(v.input, "dt", in.Dt)
}

// UpdateOutput publishes the latest navigator output.
func (v *VizMetrics) UpdateOutput(out TickOutput) {
	if v == nil {
		return
	}
	setFloat(v.output, "x", out.Position.X())
	setFloat(v.output, "y", out.Position.Y())
	setFloat(v.output, "z", out.Position.Z())
	setFloat(v.output, "recenter", float64(out.Recenter))
	setFloat(v.output, "tracker", float64(out.Tracker))
	setFloat(v.output, "corner", float64(out.CornerIndex))
	drifting := 0.0
	if out.Drifting {
		drifting = 1
	}
	setFloat(v.output, "drifting", drifting)
	if out.Cue != nil {
		setFloat(v.output, "cue_angle", out.Cue.Angle)
		setFloat(v.output, "cue_kind", float64(out.Cue.Kind))
	}
}

// setFloat updates an expvar.Float stored inside a map.
func setFloat(m *expvar.Map, key string, value float64) {
	if v := m.Get(key); v != nil {
		if f, ok := v.(*expvar.Float); ok {
			f.Set(value)
			return
		}
	}
	f := new(expvar.Float)
	f.Set(value)
	m.Set(key, f)
}

// serveHTTP runs server until ctx is done, then shuts it down.
func serveHTTP(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		<-errCh
		return err
	}
}
