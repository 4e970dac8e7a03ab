package way_nav

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hallMesh is a single 10x10 room at floor height 0.
func hallMesh(t *testing.T) *NavMesh {
	t.Helper()
	m := &NavMesh{Areas: []Area{{Name: "hall", MinX: 0, MinZ: 0, MaxX: 10, MaxZ: 10}}}
	require.NoError(t, m.Build())
	return m
}

func TestSurfaceClamp_OnSurfaceIsIdempotent(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))

	first := sc.Apply(mgl64.Vec3{5, 0, 5})
	assert.False(t, first.Drifting)
	assertVec(t, mgl64.Vec3{5, 0, 5}, first.Position)

	second := sc.Apply(first.Position)
	assert.False(t, second.Drifting)
	assertVec(t, first.Position, second.Position)
	assertVec(t, mgl64.Vec3{}, second.Offset)
	assertVec(t, mgl64.Vec3{}, sc.Correction())

	last, ok := sc.LastValid()
	require.True(t, ok)
	assertVec(t, mgl64.Vec3{5, 0, 5}, last)
}

func TestSurfaceClamp_SnapsWithinTolerance(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))

	res := sc.Apply(mgl64.Vec3{10.3, 0, 5})
	assert.False(t, res.Drifting)
	assertVec(t, mgl64.Vec3{10, 0, 5}, res.Position)
}

func TestSurfaceClamp_HoldsOnDrift(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))
	sc.Apply(mgl64.Vec3{5, 0, 5})

	res := sc.Apply(mgl64.Vec3{11, 0, 5})
	assert.True(t, res.Drifting)
	assertVec(t, mgl64.Vec3{5, 0, 5}, res.Position)
	assertVec(t, mgl64.Vec3{6, 0, 0}, res.Offset)
	assertVec(t, mgl64.Vec3{-6, 0, 0}, sc.Correction())

	// Motion resumes relative to the held point.
	res = sc.Apply(mgl64.Vec3{11.5, 0, 5})
	assert.False(t, res.Drifting)
	assertVec(t, mgl64.Vec3{5.5, 0, 5}, res.Position)
}

func TestSurfaceClamp_KeepsHeightWhileDrifting(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))
	sc.Apply(mgl64.Vec3{5, 0, 5})

	res := sc.Apply(mgl64.Vec3{5, 0.4, 20})
	assert.True(t, res.Drifting)
	assertVec(t, mgl64.Vec3{5, 0.4, 5}, res.Position)
}

func TestSurfaceClamp_DriftBeforeFirstSample(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))

	res := sc.Apply(mgl64.Vec3{50, 0, 50})
	assert.True(t, res.Drifting)
	assertVec(t, mgl64.Vec3{50, 0, 50}, res.Position)
	_, ok := sc.LastValid()
	assert.False(t, ok)
}

func TestSurfaceClamp_Reset(t *testing.T) {
	sc := NewSurfaceClamp(ClampConfig{Tolerance: 0.5}, hallMesh(t))
	sc.Apply(mgl64.Vec3{5, 0, 5})
	sc.Apply(mgl64.Vec3{20, 0, 5})
	require.NotEqual(t, mgl64.Vec3{}, sc.Correction())

	sc.Reset()
	assertVec(t, mgl64.Vec3{}, sc.Correction())
	_, ok := sc.LastValid()
	assert.False(t, ok)
}
