package way_nav

import "github.com/go-gl/mathgl/mgl64"

// TurnConfig controls turn classification and announcement distance.
type TurnConfig struct {
	AngleThreshold   float64 `json:"angle_threshold" mapstructure:"angle_threshold"`
	AnnounceDistance float64 `json:"announce_distance" mapstructure:"announce_distance"`
}

// Turn is the signed turn at corner index+1.
type Turn struct {
	Angle float64
	Kind  TurnKind
}

// TurnAnnouncer emits at most one cue per corner approach.
type TurnAnnouncer struct {
	cfg TurnConfig
}

// NewTurnAnnouncer constructs an announcer.
func NewTurnAnnouncer(cfg TurnConfig) *TurnAnnouncer {
	return &TurnAnnouncer{cfg: cfg}
}

// ClassifyTurn maps a signed angle to a turn kind using strict inequalities.
func ClassifyTurn(angle, threshold float64) TurnKind {
	switch {
	case angle > threshold:
		return TurnRight
	case angle < -threshold:
		return TurnLeft
	default:
		return TurnStraight
	}
}

// TurnBetween computes the turn from segment index→index+1 to index+1→index+2.
// It reports false on the final leg.
func (ta *TurnAnnouncer) TurnBetween(path Path, index int) (Turn, bool) {
	if index < 0 || index+2 >= path.Len() {
		return Turn{}, false
	}
	dirA := normalizeOr(flatten(path.At(index+1).Sub(path.At(index))), mgl64.Vec3{})
	dirB := normalizeOr(flatten(path.At(index+2).Sub(path.At(index+1))), mgl64.Vec3{})
	angle := SignedAngle(dirA, dirB)
	return Turn{Angle: angle, Kind: ClassifyTurn(angle, ta.cfg.AngleThreshold)}, true
}

// Evaluate fires a cue when pos is near the upcoming corner and it has not
// been announced yet. The tracker is marked before the cue is returned.
func (ta *TurnAnnouncer) Evaluate(ct *CornerTracker, pos mgl64.Vec3, t float64) (*Cue, bool) {
	if ct.State() != TrackerFollowing {
		return nil, false
	}
	progress := ct.Progress()
	if progress.Announced {
		return nil, false
	}
	turn, ok := ta.TurnBetween(progress.Path, progress.Index)
	if !ok {
		return nil, false
	}
	if distance(pos, progress.Path.At(progress.Index+1)) >= ta.cfg.AnnounceDistance {
		return nil, false
	}
	ct.MarkAnnounced()
	return &Cue{T: t, Index: progress.Index, Kind: turn.Kind, Angle: turn.Angle}, true
}
