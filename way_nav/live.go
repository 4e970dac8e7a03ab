package way_nav

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunLive runs the UDP-to-UDP tick loop until ctx is cancelled.
func RunLive(ctx context.Context, cfg AppConfig, rt *Runtime, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Hz <= 0 {
		return fmt.Errorf("hz must be > 0")
	}
	if cfg.Live.UDPAddr == "" {
		return fmt.Errorf("live.udp_addr must be set")
	}

	conn, err := listenUDP(cfg.Live)
	if err != nil {
		return err
	}
	sender, err := NewOutputSender(cfg.Output.UDPAddr)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		_ = sender.Close()
	}()
	viz, err := StartViz(cfg.Viz)
	if err != nil {
		_ = conn.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	store := &liveStore{}

	g.Go(func() error {
		return readUDP(ctx, conn, cfg.Live.ReadBuffer, store, logger)
	})
	if viz != nil {
		g.Go(func() error {
			return viz.Serve(ctx)
		})
	}
	if cfg.API.Enabled {
		api := NewAPIServer(cfg.API, rt.Navigator, logger.Named("api"))
		g.Go(func() error {
			return api.Serve(ctx)
		})
	}
	if cfg.Catalog.Watch && cfg.Catalog.Path != "" && rt.Catalog != nil {
		g.Go(func() error {
			return WatchFile(ctx, cfg.Catalog.Path, rt.Catalog, logger.Named("catalog"))
		})
	}
	g.Go(func() error {
		return tickLoop(ctx, cfg, rt.Navigator, store, sender, viz, logger)
	})

	return g.Wait()
}

// tickLoop drives the navigator at cfg.Hz. It is the only goroutine that
// touches navigator state.
func tickLoop(ctx context.Context, cfg AppConfig, nav *Navigator, store *liveStore, sender *OutputSender, viz *VizMetrics, logger *zap.Logger) error {
	period := time.Duration(float64(time.Second) / cfg.Hz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	t0 := time.Now()
	lastWall := t0
	hold := poseHold{timeout: time.Duration(cfg.Live.PoseTimeout * float64(time.Second))}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			simT := now.Sub(t0).Seconds()
			dt := mathMax(1e-3, now.Sub(lastWall).Seconds())
			lastWall = now

			sample, seq, decoded := store.Take()
			if hold.observe(sample, seq, now) {
				logger.Warn("pose feed lost", zap.Duration("since", now.Sub(hold.at)))
			}
			if sample.hasT {
				simT = sample.t
			}

			in := TickInput{T: simT, Dt: dt, HasPose: hold.valid, Camera: hold.pose, Decoded: decoded}
			if viz != nil {
				viz.UpdateInput(in)
			}

			out := nav.Step(in)
			if out.Cue != nil {
				sender.Send(*out.Cue)
			}
			if viz != nil {
				viz.UpdateOutput(out)
			}

			if cfg.Log.Enabled {
				logger.Info("tick",
					zap.Float64("t", out.T),
					zap.Stringer("recenter", out.Recenter),
					zap.Stringer("tracker", out.Tracker),
					zap.Float64("x", out.Position.X()),
					zap.Float64("y", out.Position.Y()),
					zap.Float64("z", out.Position.Z()),
					zap.Bool("drifting", out.Drifting),
					zap.Int("corner", out.CornerIndex),
					zap.Bool("decoded", decoded != ""),
				)
			}
			for _, err := range out.Errors {
				logger.Debug("tick error", zap.Error(err))
			}
		}
	}
}

// poseSample is the latest tracked pose received on the live feed.
type poseSample struct {
	t     float64
	hasT  bool
	valid bool
	pose  Pose
}

// poseHold keeps the last live pose and drops it once no new pose has
// arrived for timeout. A zero timeout holds forever.
type poseHold struct {
	timeout time.Duration
	seq     uint64
	pose    Pose
	at      time.Time
	valid   bool
}

// observe folds in a store sample taken at now. It returns true on the tick
// the held pose lapses.
func (h *poseHold) observe(sample poseSample, seq uint64, now time.Time) bool {
	if seq != h.seq && sample.valid {
		h.seq = seq
		h.pose = sample.pose
		h.at = now
		h.valid = true
		return false
	}
	if h.valid && h.timeout > 0 && now.Sub(h.at) > h.timeout {
		h.valid = false
		return true
	}
	return false
}

type liveStore struct {
	mu      sync.Mutex
	last    poseSample
	decoded string
	seq     uint64
}

// UpdatePose stores the latest pose and advances the sequence counter.
func (s *liveStore) UpdatePose(p poseSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = p
	s.seq++
}

// UpdateMarker stores the latest decoded payload until the next Take.
func (s *liveStore) UpdateMarker(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decoded = payload
}

// Take returns the latest pose and consumes the pending marker payload.
func (s *liveStore) Take() (poseSample, uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	decoded := s.decoded
	s.decoded = ""
	return s.last, s.seq, decoded
}

func listenUDP(cfg LiveConfig) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.UDPAddr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", addr)
}

// readRetryDelay paces reads after a socket error.
const readRetryDelay = 50 * time.Millisecond

type udpReader interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	Close() error
}

// readUDP feeds live messages into store until ctx is done.
func readUDP(ctx context.Context, conn udpReader, bufSize int, store *liveStore, logger *zap.Logger) error {
	if bufSize <= 0 {
		bufSize = 2048
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, bufSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Debug("udp read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		msg, err := parseLiveMessage(buf[:n])
		if err != nil {
			logger.Debug("dropping live message", zap.Error(err))
			continue
		}
		switch msg.kind {
		case messagePose:
			store.UpdatePose(msg.pose)
		case messageMarker:
			store.UpdateMarker(msg.payload)
		}
	}
}

type messageKind int

const (
	messagePose messageKind = iota + 1
	messageMarker
)

type liveMessage struct {
	kind    messageKind
	pose    poseSample
	payload string
}

// parseLiveMessage parses "pose,[t,]px,py,pz,qw,qx,qy,qz" and
// "marker,<payload>" datagrams.
func parseLiveMessage(b []byte) (liveMessage, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return liveMessage{}, errors.New("empty payload")
	}
	kind, rest, _ := strings.Cut(s, ",")
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "marker":
		payload := strings.TrimSpace(rest)
		if payload == "" {
			return liveMessage{}, errors.New("empty marker payload")
		}
		return liveMessage{kind: messageMarker, payload: payload}, nil
	case "pose":
		p, err := parsePose(rest)
		if err != nil {
			return liveMessage{}, err
		}
		return liveMessage{kind: messagePose, pose: p}, nil
	default:
		return liveMessage{}, fmt.Errorf("unknown message kind %q", kind)
	}
}

func parsePose(csv string) (poseSample, error) {
	parts := strings.Split(csv, ",")
	if len(parts) != 7 && len(parts) != 8 {
		return poseSample{}, fmt.Errorf("expected 7 or 8 pose fields, got %d", len(parts))
	}
	vals := make([]float64, len(parts))
	for i, part := range parts {
		v, err := parseF64(part)
		if err != nil {
			return poseSample{}, err
		}
		vals[i] = v
	}

	sample := poseSample{valid: true}
	if len(vals) == 8 {
		sample.t = vals[0]
		sample.hasT = true
		vals = vals[1:]
	}
	rot := mgl64.Quat{W: vals[3], V: mgl64.Vec3{vals[4], vals[5], vals[6]}}
	sample.pose = NewPose(mgl64.Vec3{vals[0], vals[1], vals[2]}, rot)
	return sample, nil
}

// parseF64 parses a float from a CSV field.
func parseF64(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// mathMax returns the larger of a or b.
func mathMax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
