package way_nav

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// ErrBusy means the command queue is full.
var ErrBusy = errors.New("command queue full")

// Command is work posted from another goroutine and run at the start of the
// next tick.
type Command func(n *Navigator)

// Collaborators are the external systems the navigator drives.
type Collaborators struct {
	Surface    Surface
	Pathfinder Pathfinder
	Resolver   TargetResolver
	Catalog    *Catalog
}

// Status is a snapshot of the navigator for readers outside the tick loop.
type Status struct {
	T           float64     `json:"t"`
	Recenter    string      `json:"recenter"`
	Scanning    bool        `json:"scanning"`
	Tracker     string      `json:"tracker"`
	CornerIndex int         `json:"corner_index"`
	Corners     int         `json:"corners"`
	Position    [3]float64  `json:"position"`
	Drifting    bool        `json:"drifting"`
	Destination *[3]float64 `json:"destination,omitempty"`
	AnchorID    string      `json:"anchor_id,omitempty"`
	AnchorName  string      `json:"anchor_target,omitempty"`
	LastCue     *CueStatus  `json:"last_cue,omitempty"`
}

// CueStatus is the serialized form of the last cue.
type CueStatus struct {
	T     float64 `json:"t"`
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Angle float64 `json:"angle"`
}

// Navigator runs the per-tick pipeline: recenter, clamp, corner tracking,
// turn announcement. All state changes happen inside Step or in commands
// drained by Step.
type Navigator struct {
	logger   *zap.Logger
	query    *PathQuery
	clamp    *SurfaceClamp
	tracker  *CornerTracker
	turns    *TurnAnnouncer
	recenter *RecenterEngine
	catalog  *Catalog
	commands chan Command

	destination *mgl64.Vec3
	replan      bool
	pose        Pose
	hasPose     bool
	lastCue     *Cue

	statusMu sync.RWMutex
	status   Status
}

// NewNavigator wires the core components from configuration.
func NewNavigator(cfg AppConfig, deps Collaborators, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := cfg.Live.CommandQueue
	if queue <= 0 {
		queue = 64
	}
	n := &Navigator{
		logger:   logger,
		query:    NewPathQuery(cfg.Path, deps.Surface, deps.Pathfinder),
		clamp:    NewSurfaceClamp(cfg.Clamp, deps.Surface),
		tracker:  NewCornerTracker(cfg.Tracker),
		turns:    NewTurnAnnouncer(cfg.Turns),
		recenter: NewRecenterEngine(cfg.Recenter, deps.Resolver, logger.Named("recenter")),
		catalog:  deps.Catalog,
		commands: make(chan Command, queue),
	}
	n.publish(TickOutput{Recenter: n.recenter.State(), Tracker: n.tracker.State()})
	return n
}

// Post queues a command for the next tick. It never blocks.
func (n *Navigator) Post(cmd Command) error {
	select {
	case n.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// SetDestination plans a path to goal and installs it. On failure the
// previous path stays installed.
func (n *Navigator) SetDestination(goal mgl64.Vec3) error {
	if !n.hasPose {
		g := goal
		n.destination = &g
		n.replan = true
		return fmt.Errorf("destination %v queued: %w", goal, ErrNoPose)
	}
	path, err := n.query.ComputePath(n.pose, goal)
	if err != nil {
		n.logger.Warn("destination rejected", zap.Error(err))
		return err
	}
	g := goal
	n.destination = &g
	n.replan = false
	n.tracker.Install(path)
	n.logger.Info("path installed", zap.Int("corners", path.Len()))
	return nil
}

// SetDestinationByName looks a destination up in the catalog.
func (n *Navigator) SetDestinationByName(name string) error {
	if n.catalog == nil {
		return fmt.Errorf("%q: %w", name, ErrTargetNotFound)
	}
	rec, ok := n.catalog.Lookup(UnwrapTargetID(name))
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrTargetNotFound)
	}
	return n.SetDestination(rec.Position.Vec())
}

// ClearDestination drops the destination and path.
func (n *Navigator) ClearDestination() {
	n.destination = nil
	n.replan = false
	n.tracker.Clear()
}

// SetRecenterTarget recenters on identifier without scanning.
func (n *Navigator) SetRecenterTarget(identifier string) {
	n.recenter.SetTarget(identifier)
}

// StartScanning enables marker decoding.
func (n *Navigator) StartScanning() {
	n.recenter.StartScanning()
}

// StopScanning disables marker decoding.
func (n *Navigator) StopScanning() {
	n.recenter.StopScanning()
}

// Rescan resets the frame to its default placement and re-arms scanning.
func (n *Navigator) Rescan() {
	n.recenter.Rescan()
	n.invalidate()
}

// invalidate drops state that depends on the previous frame.
func (n *Navigator) invalidate() {
	n.clamp.Reset()
	n.tracker.Clear()
	n.replan = n.destination != nil
}

// Step advances every component by one tick in dependency order.
func (n *Navigator) Step(in TickInput) TickOutput {
	n.drain()

	out := TickOutput{T: in.T}
	rec := n.recenter.Step(in)
	if rec.Err != nil {
		out.Errors = append(out.Errors, rec.Err)
	}
	if rec.Started {
		n.tracker.Clear()
		n.clamp.Reset()
	}
	if rec.Completed {
		n.invalidate()
		out.Recentered = true
	}
	out.Recenter = n.recenter.State()

	if !in.HasPose {
		out.Tracker = n.tracker.State()
		n.publish(out)
		return out
	}

	world := n.recenter.Frame().ToWorld(in.Camera)
	out.Camera = world

	position := world.Position
	if out.Recenter != RecenterRecentering {
		cr := n.clamp.Apply(world.Position)
		position = cr.Position
		out.Drifting = cr.Drifting
	}
	n.pose = Pose{Position: position, Rotation: world.Rotation}
	n.hasPose = true
	out.Position = position

	if n.replan && n.destination != nil && out.Recenter != RecenterRecentering {
		n.replan = false
		if err := n.SetDestination(*n.destination); err != nil {
			out.Errors = append(out.Errors, err)
		}
	}

	if step, ok := n.tracker.Update(position); ok {
		out.CornerIndex = step.Index
		out.Advanced = step.Advanced
	}
	if cue, ok := n.turns.Evaluate(n.tracker, position, in.T); ok {
		out.Cue = cue
		n.lastCue = cue
		n.logger.Info("turn cue",
			zap.Int("index", cue.Index),
			zap.String("text", cue.Text()),
			zap.Float64("angle", cue.Angle),
		)
	}
	out.Tracker = n.tracker.State()

	n.publish(out)
	return out
}

// Status returns the latest snapshot. Safe for concurrent use.
func (n *Navigator) Status() Status {
	n.statusMu.RLock()
	defer n.statusMu.RUnlock()
	return n.status
}

// Recenter exposes the recenter engine for read-only queries.
func (n *Navigator) Recenter() *RecenterEngine {
	return n.recenter
}

// Tracker exposes the corner tracker for read-only queries.
func (n *Navigator) Tracker() *CornerTracker {
	return n.tracker
}

func (n *Navigator) drain() {
	for {
		select {
		case cmd := <-n.commands:
			cmd(n)
		default:
			return
		}
	}
}

func (n *Navigator) publish(out TickOutput) {
	st := Status{
		T:           out.T,
		Recenter:    out.Recenter.String(),
		Scanning:    n.recenter.Scanning(),
		Tracker:     out.Tracker.String(),
		CornerIndex: out.CornerIndex,
		Corners:     n.tracker.Progress().Path.Len(),
		Position:    [3]float64(out.Position),
		Drifting:    out.Drifting,
	}
	if n.destination != nil {
		d := [3]float64(*n.destination)
		st.Destination = &d
	}
	if a, ok := n.recenter.Anchor(); ok {
		st.AnchorID = a.ID.String()
		st.AnchorName = a.TargetID
	}
	if n.lastCue != nil {
		st.LastCue = &CueStatus{T: n.lastCue.T, Index: n.lastCue.Index, Text: n.lastCue.Text(), Angle: n.lastCue.Angle}
	}

	n.statusMu.Lock()
	n.status = st
	n.statusMu.Unlock()
}
