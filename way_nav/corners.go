package way_nav

import "github.com/go-gl/mathgl/mgl64"

// TrackerConfig controls corner advancement.
type TrackerConfig struct {
	AdvanceThreshold float64 `json:"advance_threshold" mapstructure:"advance_threshold"`
}

// CornerProgress is the tracker's position along its path.
type CornerProgress struct {
	Path      Path
	Index     int
	Announced bool
}

// CornerStep is what the tracker exposes after an update.
type CornerStep struct {
	Index    int
	From     mgl64.Vec3
	To       mgl64.Vec3
	Advanced bool
}

// CornerTracker follows a path by a monotonic corner index.
type CornerTracker struct {
	cfg      TrackerConfig
	state    TrackerState
	progress CornerProgress
}

// NewCornerTracker constructs a tracker with no path installed.
func NewCornerTracker(cfg TrackerConfig) *CornerTracker {
	return &CornerTracker{cfg: cfg, state: TrackerNoPath}
}

// Install replaces the current path and resets progress.
func (ct *CornerTracker) Install(path Path) {
	ct.progress = CornerProgress{Path: path, Index: 0, Announced: false}
	ct.state = TrackerFollowing
}

// Clear drops the current path.
func (ct *CornerTracker) Clear() {
	ct.progress = CornerProgress{}
	ct.state = TrackerNoPath
}

// State returns the tracker state.
func (ct *CornerTracker) State() TrackerState {
	return ct.state
}

// Progress returns a copy of the current progress.
func (ct *CornerTracker) Progress() CornerProgress {
	return ct.progress
}

// MarkAnnounced records that the current corner has been announced.
func (ct *CornerTracker) MarkAnnounced() {
	ct.progress.Announced = true
}

// Update measures distance to the next corner and advances when close.
func (ct *CornerTracker) Update(pos mgl64.Vec3) (CornerStep, bool) {
	if ct.state != TrackerFollowing || !ct.progress.Path.Usable() {
		return CornerStep{}, false
	}

	path := ct.progress.Path
	last := path.Len() - 1
	next := min(ct.progress.Index+1, last)

	advanced := false
	if distance(pos, path.At(next)) < ct.cfg.AdvanceThreshold && ct.progress.Index < path.Len()-2 {
		ct.progress.Index++
		ct.progress.Announced = false
		advanced = true
		next = min(ct.progress.Index+1, last)
	}

	return CornerStep{
		Index:    ct.progress.Index,
		From:     path.At(ct.progress.Index),
		To:       path.At(next),
		Advanced: advanced,
	}, true
}
