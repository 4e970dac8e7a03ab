package way_nav

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// PathConfig controls path queries.
type PathConfig struct {
	GoalTolerance float64 `json:"goal_tolerance" mapstructure:"goal_tolerance"`
	MinSpacing    float64 `json:"min_spacing" mapstructure:"min_spacing"`
}

// Path is an ordered, immutable sequence of corners from start to goal.
type Path struct {
	corners []mgl64.Vec3
}

// NewPath copies corners into a Path, dropping consecutive duplicates.
func NewPath(corners []mgl64.Vec3, minSpacing float64) Path {
	out := make([]mgl64.Vec3, 0, len(corners))
	for _, c := range corners {
		if len(out) > 0 && distance(out[len(out)-1], c) <= minSpacing {
			continue
		}
		out = append(out, c)
	}
	return Path{corners: out}
}

// Len returns the number of corners.
func (p Path) Len() int {
	return len(p.corners)
}

// At returns corner i.
func (p Path) At(i int) mgl64.Vec3 {
	return p.corners[i]
}

// Corners returns a copy of the corner points.
func (p Path) Corners() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(p.corners))
	copy(out, p.corners)
	return out
}

// Usable reports whether the path has at least two corners.
func (p Path) Usable() bool {
	return len(p.corners) >= 2
}

// PathQuery wraps the external pathfinder with goal validation.
type PathQuery struct {
	cfg     PathConfig
	surface Surface
	finder  Pathfinder
}

// NewPathQuery constructs a query over the given surface and pathfinder.
func NewPathQuery(cfg PathConfig, surface Surface, finder Pathfinder) *PathQuery {
	return &PathQuery{cfg: cfg, surface: surface, finder: finder}
}

// ComputePath returns a usable path from start to goal or ErrUnreachable.
func (q *PathQuery) ComputePath(start Pose, goal mgl64.Vec3) (Path, error) {
	target := goal
	if q.surface != nil {
		snapped, ok := q.surface.Sample(goal, q.cfg.GoalTolerance)
		if !ok {
			return Path{}, fmt.Errorf("goal %v is off the navigable surface: %w", goal, ErrUnreachable)
		}
		target = snapped
	}

	corners, ok := q.finder.FindPath(start.Position, target)
	if !ok {
		return Path{}, fmt.Errorf("no route from %v to %v: %w", start.Position, target, ErrUnreachable)
	}
	path := NewPath(corners, q.cfg.MinSpacing)
	if !path.Usable() {
		return Path{}, fmt.Errorf("route to %v has %d corners: %w", target, path.Len(), ErrUnreachable)
	}
	return path, nil
}
