package way_nav

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lPath() Path {
	return NewPath([]mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 0, 2}}, 0)
}

func TestCornerTracker_AdvancesNearCorner(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	ct.Install(lPath())

	step, ok := ct.Update(mgl64.Vec3{1.9, 0, 0})
	require.True(t, ok)
	assert.True(t, step.Advanced)
	assert.Equal(t, 1, step.Index)
	assertVec(t, mgl64.Vec3{2, 0, 0}, step.From)
	assertVec(t, mgl64.Vec3{2, 0, 2}, step.To)
	assert.False(t, ct.Progress().Announced)
}

func TestCornerTracker_HoldsWhenFar(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	ct.Install(lPath())

	step, ok := ct.Update(mgl64.Vec3{1.5, 0, 0})
	require.True(t, ok)
	assert.False(t, step.Advanced)
	assert.Equal(t, 0, step.Index)
}

func TestCornerTracker_StaysFollowingAtPathEnd(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	ct.Install(lPath())

	ct.Update(mgl64.Vec3{2, 0, 0})
	for i := 0; i < 3; i++ {
		step, ok := ct.Update(mgl64.Vec3{2, 0, 2})
		require.True(t, ok)
		assert.False(t, step.Advanced)
		assert.Equal(t, 1, step.Index)
	}
	assert.Equal(t, TrackerFollowing, ct.State())
}

func TestCornerTracker_InstallResetsProgress(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	ct.Install(NewPath([]mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 0, 2}, {4, 0, 2}}, 0))
	ct.Update(mgl64.Vec3{2, 0, 0})
	ct.MarkAnnounced()
	require.Equal(t, 1, ct.Progress().Index)

	ct.Install(lPath())
	assert.Equal(t, 0, ct.Progress().Index)
	assert.False(t, ct.Progress().Announced)
	assert.Equal(t, TrackerFollowing, ct.State())
}

func TestCornerTracker_NoPath(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	_, ok := ct.Update(mgl64.Vec3{})
	assert.False(t, ok)
	assert.Equal(t, TrackerNoPath, ct.State())

	ct.Install(lPath())
	ct.Clear()
	_, ok = ct.Update(mgl64.Vec3{})
	assert.False(t, ok)
	assert.Equal(t, TrackerNoPath, ct.State())
}

func TestNewPath_DropsCloseCorners(t *testing.T) {
	p := NewPath([]mgl64.Vec3{{0, 0, 0}, {0, 0, 0.05}, {2, 0, 0}, {2, 0, 0}}, 0.1)
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Usable())
}
