package way_nav

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrUnreachable means no path connects start and goal.
	ErrUnreachable = errors.New("destination unreachable")
	// ErrTargetNotFound means a marker identifier did not resolve to a pose.
	ErrTargetNotFound = errors.New("target not found")
	// ErrNoPose means an operation needed a tracked pose before one arrived.
	ErrNoPose = errors.New("no tracked pose yet")
)

// Surface is the navigable region used for drift validation and goal checks.
type Surface interface {
	// Sample returns the closest walkable point within radius of p.
	Sample(p mgl64.Vec3, radius float64) (mgl64.Vec3, bool)
}

// Pathfinder is the external path search over the navigable surface.
type Pathfinder interface {
	// FindPath returns ordered corner points from start to goal, or false.
	FindPath(start, goal mgl64.Vec3) ([]mgl64.Vec3, bool)
}

// TargetPose is the world pose a marker identifier maps to.
// A zero Forward keeps the camera's current heading.
type TargetPose struct {
	Position mgl64.Vec3
	Forward  mgl64.Vec3
	Up       mgl64.Vec3
}

// TargetResolver maps marker identifiers to world poses.
type TargetResolver interface {
	Resolve(identifier string) (TargetPose, error)
}

// RecenterState is the lifecycle state of the recenter engine.
type RecenterState int

const (
	RecenterIdle RecenterState = iota + 1
	RecenterScanning
	RecenterResolving
	RecenterRecentering
)

func (s RecenterState) String() string {
	switch s {
	case RecenterIdle:
		return "IDLE"
	case RecenterScanning:
		return "SCANNING"
	case RecenterResolving:
		return "RESOLVING"
	case RecenterRecentering:
		return "RECENTERING"
	default:
		return fmt.Sprintf("RecenterState(%d)", int(s))
	}
}

// TrackerState is the corner tracker state.
type TrackerState int

const (
	TrackerNoPath TrackerState = iota + 1
	TrackerFollowing
)

func (s TrackerState) String() string {
	switch s {
	case TrackerNoPath:
		return "NO_PATH"
	case TrackerFollowing:
		return "FOLLOWING"
	default:
		return fmt.Sprintf("TrackerState(%d)", int(s))
	}
}

// TurnKind classifies the turn between two path segments.
type TurnKind int

const (
	TurnStraight TurnKind = iota + 1
	TurnLeft
	TurnRight
)

func (k TurnKind) String() string {
	switch k {
	case TurnStraight:
		return "STRAIGHT"
	case TurnLeft:
		return "LEFT"
	case TurnRight:
		return "RIGHT"
	default:
		return fmt.Sprintf("TurnKind(%d)", int(k))
	}
}

// Phrase is the spoken/displayed cue for the turn.
func (k TurnKind) Phrase() string {
	switch k {
	case TurnLeft:
		return "turn left"
	case TurnRight:
		return "turn right"
	default:
		return "continue straight"
	}
}

// Cue is a single turn announcement.
type Cue struct {
	T     float64
	Index int
	Kind  TurnKind
	Angle float64
}

// Text returns the cue phrase.
func (c Cue) Text() string {
	return c.Kind.Phrase()
}

// TickInput is everything the core consumes for one frame.
type TickInput struct {
	T  float64
	Dt float64
	// HasPose is false until the motion tracker produces a pose.
	HasPose bool
	// Camera is the tracked pose in the tracking (local) frame.
	Camera Pose
	// Decoded is the marker payload decoded this frame, if any.
	Decoded string
}

// TickOutput is the result of one frame.
type TickOutput struct {
	T           float64
	Recenter    RecenterState
	Camera      Pose
	Position    mgl64.Vec3
	Drifting    bool
	Tracker     TrackerState
	CornerIndex int
	Advanced    bool
	Cue         *Cue
	Recentered  bool
	Errors      []error
}
