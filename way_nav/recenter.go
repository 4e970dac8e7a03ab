package way_nav

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecenterConfig controls marker-driven recentering.
type RecenterConfig struct {
	Duration     float64        `json:"duration" mapstructure:"duration"`
	SettleDelay  float64        `json:"settle_delay" mapstructure:"settle_delay"`
	ScanOnStart  bool           `json:"scan_on_start" mapstructure:"scan_on_start"`
	DefaultFrame FramePlacement `json:"default_frame" mapstructure:"default_frame"`
}

// Anchor is a world-locked pose created from a resolved marker.
type Anchor struct {
	ID       uuid.UUID
	TargetID string
	Pose     Pose
}

// RecenterResult reports what the engine did during one tick.
type RecenterResult struct {
	State     RecenterState
	Started   bool
	Completed bool
	Err       error
}

type transition struct {
	targetID string
	from     CameraTarget
	to       CameraTarget
	progress float64
}

// RecenterEngine owns the world frame and re-anchors it on marker events.
// It is the only component that mutates the frame.
type RecenterEngine struct {
	cfg      RecenterConfig
	resolver TargetResolver
	logger   *zap.Logger

	state       RecenterState
	scanEnabled bool
	frame       Frame
	anchor      *Anchor
	active      *transition
	settle      float64
	pending     string
	lastTarget  string // suppresses re-triggering on a marker still in view
}

// NewRecenterEngine constructs an engine placed at the default frame.
func NewRecenterEngine(cfg RecenterConfig, resolver TargetResolver, logger *zap.Logger) *RecenterEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &RecenterEngine{
		cfg:         cfg,
		resolver:    resolver,
		logger:      logger,
		state:       RecenterIdle,
		scanEnabled: cfg.ScanOnStart,
		frame:       FrameFromPlacement(cfg.DefaultFrame),
	}
	if cfg.ScanOnStart {
		e.state = RecenterScanning
	}
	return e
}

// State returns the lifecycle state.
func (e *RecenterEngine) State() RecenterState {
	return e.state
}

// Frame returns the current world frame.
func (e *RecenterEngine) Frame() Frame {
	return e.frame
}

// Anchor returns the active anchor, if any.
func (e *RecenterEngine) Anchor() (Anchor, bool) {
	if e.anchor == nil {
		return Anchor{}, false
	}
	return *e.anchor, true
}

// Scanning reports whether decode events are currently accepted.
func (e *RecenterEngine) Scanning() bool {
	return e.scanEnabled && e.settle <= 0
}

// StartScanning enables decode acceptance.
func (e *RecenterEngine) StartScanning() {
	e.scanEnabled = true
	e.settle = 0
	if e.state == RecenterIdle {
		e.state = RecenterScanning
	}
}

// StopScanning disables decode acceptance.
func (e *RecenterEngine) StopScanning() {
	e.scanEnabled = false
	e.settle = 0
	if e.state == RecenterScanning {
		e.state = RecenterIdle
	}
}

// SetTarget queues a recenter on identifier, bypassing scanning. It is
// processed on the next Step that has a tracked pose.
func (e *RecenterEngine) SetTarget(identifier string) {
	e.pending = identifier
}

// Rescan abandons any transition, destroys the anchor, restores the default
// frame and re-enables scanning once the settle delay has elapsed.
func (e *RecenterEngine) Rescan() {
	e.active = nil
	e.anchor = nil
	e.pending = ""
	e.lastTarget = ""
	e.frame = FrameFromPlacement(e.cfg.DefaultFrame)
	e.state = RecenterIdle
	e.scanEnabled = true
	e.settle = e.cfg.SettleDelay
	if e.settle <= 0 {
		e.state = RecenterScanning
	}
	e.logger.Info("rescan requested", zap.Float64("settle_delay", e.cfg.SettleDelay))
}

// Step advances the engine by one tick.
func (e *RecenterEngine) Step(in TickInput) RecenterResult {
	res := RecenterResult{}

	if e.pending != "" && in.HasPose {
		id := e.pending
		e.pending = ""
		target, err := e.lookup(id)
		if err == nil {
			e.begin(id, target, in.Camera)
			res.Started = true
			res.State = e.state
			return res
		}
		res.Err = err
		if e.active == nil {
			e.fallback()
			res.State = e.state
			return res
		}
		// A miss leaves the running transition in place.
	}

	switch e.state {
	case RecenterIdle:
		if e.settle > 0 {
			e.settle -= in.Dt
			if e.settle <= 0 {
				e.settle = 0
				e.state = RecenterScanning
			}
			break
		}
		if in.Decoded != "" && e.scanEnabled && in.HasPose && UnwrapTargetID(ParseMarkerPayload(in.Decoded)) != e.lastTarget {
			e.state = RecenterScanning
			res.Started, res.Err = e.scan(in)
		}
	case RecenterScanning:
		if !e.scanEnabled {
			e.state = RecenterIdle
			break
		}
		if in.Decoded != "" && in.HasPose {
			res.Started, res.Err = e.scan(in)
		}
	case RecenterRecentering:
		if in.HasPose {
			res.Completed = e.advance(in.Camera, in.Dt)
		}
	}

	res.State = e.state
	return res
}

// scan handles a decode event while scanning.
func (e *RecenterEngine) scan(in TickInput) (bool, error) {
	id := ParseMarkerPayload(in.Decoded)
	started, err := e.resolve(id, in.Camera)
	if !started {
		e.state = RecenterScanning
	}
	return started, err
}

// fallback restores the scanning lifecycle after a failed manual target.
// While a rescan is settling the engine stays Idle until the delay elapses.
func (e *RecenterEngine) fallback() {
	if e.scanEnabled && e.settle <= 0 {
		e.state = RecenterScanning
	} else {
		e.state = RecenterIdle
	}
}

// lookup resolves identifier without touching engine state.
func (e *RecenterEngine) lookup(identifier string) (TargetPose, error) {
	if identifier == "" || e.resolver == nil {
		return TargetPose{}, ErrTargetNotFound
	}
	target, err := e.resolver.Resolve(identifier)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			e.logger.Warn("marker target not found", zap.String("target", identifier), zap.Error(err))
		} else {
			e.logger.Warn("marker target lookup failed", zap.String("target", identifier), zap.Error(err))
		}
		return TargetPose{}, err
	}
	return target, nil
}

// resolve looks up identifier and, on success, starts a transition.
func (e *RecenterEngine) resolve(identifier string, camera Pose) (bool, error) {
	e.state = RecenterResolving
	target, err := e.lookup(identifier)
	if err != nil {
		return false, err
	}
	e.begin(identifier, target, camera)
	return true, nil
}

// begin replaces the anchor and starts the smoothing transition.
func (e *RecenterEngine) begin(identifier string, target TargetPose, camera Pose) {
	world := e.frame.ToWorld(camera)
	from := CameraTarget{
		Position: world.Position,
		Up:       e.frame.Up(),
		Forward:  normalizeOr(flatten(world.Forward()), WorldForward),
	}

	forward := normalizeOr(flatten(target.Forward), from.Forward)
	up := normalizeOr(target.Up, WorldUp)
	pinned := mgl64.Vec3{target.Position.X(), world.Position.Y(), target.Position.Z()}
	to := CameraTarget{Position: pinned, Up: up, Forward: forward}

	e.anchor = &Anchor{
		ID:       uuid.New(),
		TargetID: identifier,
		Pose:     Pose{Position: pinned, Rotation: yawRotation(SignedAngle(WorldForward, forward))},
	}
	e.active = &transition{targetID: identifier, from: from, to: to}
	e.state = RecenterRecentering
	e.frame = PlaceCamera(camera, InterpolateCamera(from, to, 0))

	e.logger.Info("recentering",
		zap.String("target", identifier),
		zap.String("anchor", e.anchor.ID.String()),
		zap.Float64("x", pinned.X()),
		zap.Float64("z", pinned.Z()),
	)
}

// advance moves the transition forward by dt and reports completion.
func (e *RecenterEngine) advance(camera Pose, dt float64) bool {
	tr := e.active
	if tr == nil {
		e.state = RecenterIdle
		return false
	}
	if e.cfg.Duration > 0 {
		tr.progress += dt / e.cfg.Duration
	} else {
		tr.progress = 1
	}

	if tr.progress >= 1 {
		e.frame = PlaceCamera(camera, tr.to)
		e.active = nil
		e.state = RecenterIdle
		e.lastTarget = UnwrapTargetID(tr.targetID)
		e.logger.Info("recenter complete", zap.String("target", tr.targetID))
		return true
	}
	e.frame = PlaceCamera(camera, InterpolateCamera(tr.from, tr.to, tr.progress))
	return false
}
