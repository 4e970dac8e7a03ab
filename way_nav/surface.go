package way_nav

import "github.com/go-gl/mathgl/mgl64"

// ClampConfig controls drift validation against the navigable surface.
type ClampConfig struct {
	Tolerance float64 `json:"tolerance" mapstructure:"tolerance"`
}

// ClampResult is the outcome of one clamp tick.
type ClampResult struct {
	Position mgl64.Vec3
	Drifting bool
	Offset   mgl64.Vec3
}

// SurfaceClamp keeps the tracked position on the navigable surface.
//
// It never blocks motion: on a failed sample it shifts its own horizontal
// correction so the corrected position holds at the last valid point.
type SurfaceClamp struct {
	cfg     ClampConfig
	surface Surface

	lastValid  *mgl64.Vec3
	correction mgl64.Vec3
}

// NewSurfaceClamp constructs a clamp over surface.
func NewSurfaceClamp(cfg ClampConfig, surface Surface) *SurfaceClamp {
	return &SurfaceClamp{cfg: cfg, surface: surface}
}

// Apply validates tracked and returns the corrected position.
func (sc *SurfaceClamp) Apply(tracked mgl64.Vec3) ClampResult {
	probe := tracked.Add(sc.correction)
	if sc.surface == nil {
		return ClampResult{Position: probe}
	}

	if sample, ok := sc.surface.Sample(probe, sc.cfg.Tolerance); ok {
		valid := sample
		sc.lastValid = &valid
		return ClampResult{Position: sample}
	}

	if sc.lastValid == nil {
		return ClampResult{Position: probe, Drifting: true}
	}

	offset := probe.Sub(*sc.lastValid)
	horizontal := flatten(offset)
	sc.correction = sc.correction.Sub(horizontal)
	held := probe.Sub(horizontal)
	return ClampResult{Position: held, Drifting: true, Offset: offset}
}

// LastValid returns the last position confirmed on the surface.
func (sc *SurfaceClamp) LastValid() (mgl64.Vec3, bool) {
	if sc.lastValid == nil {
		return mgl64.Vec3{}, false
	}
	return *sc.lastValid, true
}

// Correction returns the accumulated horizontal drift correction.
func (sc *SurfaceClamp) Correction() mgl64.Vec3 {
	return sc.correction
}

// Reset forgets the last valid point and correction after a frame change.
func (sc *SurfaceClamp) Reset() {
	sc.lastValid = nil
	sc.correction = mgl64.Vec3{}
}
