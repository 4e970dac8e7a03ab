package way_nav

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// SimulationConfig controls an offline walk along a planned route.
type SimulationConfig struct {
	Hz       float64
	Speed    float64
	MaxTicks int
}

// SimulateRoute plans a route from start to the named destination and walks
// it tick by tick through nav, returning the cues emitted on the way. The
// navigator's frame must be the identity so camera and world coordinates
// agree.
func SimulateRoute(nav *Navigator, start mgl64.Vec3, destination string, cfg SimulationConfig) ([]Cue, error) {
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.2
	}
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = 100000
	}
	dt := 1 / cfg.Hz
	t := 0.0
	tick := func(pos mgl64.Vec3, heading mgl64.Vec3) TickOutput {
		yaw := SignedAngle(WorldForward, normalizeOr(flatten(heading), WorldForward))
		out := nav.Step(TickInput{T: t, Dt: dt, HasPose: true, Camera: NewPose(pos, yawRotation(yaw))})
		t += dt
		return out
	}

	tick(start, WorldForward)

	var planErr error
	if err := nav.Post(func(n *Navigator) { planErr = n.SetDestinationByName(destination) }); err != nil {
		return nil, err
	}
	var cues []Cue
	if out := tick(start, WorldForward); out.Cue != nil {
		cues = append(cues, *out.Cue)
	}
	if planErr != nil && !errors.Is(planErr, ErrNoPose) {
		return nil, planErr
	}
	if nav.Tracker().State() != TrackerFollowing {
		return nil, fmt.Errorf("%q: %w", destination, ErrUnreachable)
	}

	corners := nav.Tracker().Progress().Path.Corners()
	pos := start
	step := cfg.Speed * dt
	for next, n := 0, 0; next < len(corners); n++ {
		if n >= cfg.MaxTicks {
			return cues, fmt.Errorf("route to %q did not finish in %d ticks", destination, cfg.MaxTicks)
		}
		to := corners[next]
		heading := to.Sub(pos)
		if heading.Len() <= step {
			pos = to
			next++
		} else {
			pos = pos.Add(heading.Normalize().Mul(step))
		}
		if out := tick(pos, heading); out.Cue != nil {
			cues = append(cues, *out.Cue)
		}
	}
	return cues, nil
}
