package way_nav

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTurns() *TurnAnnouncer {
	return NewTurnAnnouncer(TurnConfig{AngleThreshold: 30, AnnounceDistance: 2})
}

func TestClassifyTurn_Boundaries(t *testing.T) {
	assert.Equal(t, TurnStraight, ClassifyTurn(30, 30))
	assert.Equal(t, TurnStraight, ClassifyTurn(-30, 30))
	assert.Equal(t, TurnRight, ClassifyTurn(30.0001, 30))
	assert.Equal(t, TurnLeft, ClassifyTurn(-30.0001, 30))
	assert.Equal(t, TurnStraight, ClassifyTurn(0, 30))
}

func TestTurnBetween_RightAngle(t *testing.T) {
	turn, ok := defaultTurns().TurnBetween(lPath(), 0)
	require.True(t, ok)
	assert.InDelta(t, 90, turn.Angle, 1e-9)
	assert.Equal(t, TurnRight, turn.Kind)
	assert.Equal(t, "turn right", turn.Kind.Phrase())
}

func TestTurnBetween_ThirtyDegreesIsStraight(t *testing.T) {
	rad := mgl64.DegToRad(30)
	// Heading +X, then rotated 30 degrees toward +Z.
	p := NewPath([]mgl64.Vec3{
		{0, 0, 0},
		{2, 0, 0},
		{2 + math.Cos(rad), 0, math.Sin(rad)},
	}, 0)
	turn, ok := defaultTurns().TurnBetween(p, 0)
	require.True(t, ok)
	assert.InDelta(t, 30, turn.Angle, 1e-9)
	assert.Equal(t, TurnStraight, ClassifyTurn(30, 30))
}

func TestTurnBetween_FinalLeg(t *testing.T) {
	_, ok := defaultTurns().TurnBetween(lPath(), 1)
	assert.False(t, ok)
}

func TestTurnAnnouncer_FiresOncePerCorner(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	p := NewPath([]mgl64.Vec3{{0, 0, 0}, {4, 0, 0}, {4, 0, 4}, {0, 0, 4}}, 0)
	ct.Install(p)
	ta := defaultTurns()

	_, fired := ta.Evaluate(ct, mgl64.Vec3{1, 0, 0}, 0)
	assert.False(t, fired, "too far from corner")

	cue, fired := ta.Evaluate(ct, mgl64.Vec3{2.5, 0, 0}, 1)
	require.True(t, fired)
	assert.Equal(t, 0, cue.Index)
	assert.Equal(t, TurnRight, cue.Kind)
	assert.Equal(t, 1.0, cue.T)
	assert.True(t, ct.Progress().Announced)

	for _, x := range []float64{3, 3.5, 3.8} {
		_, fired = ta.Evaluate(ct, mgl64.Vec3{x, 0, 0}, 2)
		assert.False(t, fired, "no repeat at x=%v", x)
	}

	// Advancing re-arms the next corner.
	step, _ := ct.Update(mgl64.Vec3{4, 0, 0.1})
	require.True(t, step.Advanced)
	cue, fired = ta.Evaluate(ct, mgl64.Vec3{4, 0, 2.5}, 3)
	require.True(t, fired)
	assert.Equal(t, 1, cue.Index)
	assert.Equal(t, TurnRight, cue.Kind)
}

func TestTurnAnnouncer_NoCueWithoutPath(t *testing.T) {
	ct := NewCornerTracker(TrackerConfig{AdvanceThreshold: 0.5})
	_, fired := defaultTurns().Evaluate(ct, mgl64.Vec3{}, 0)
	assert.False(t, fired)
}

func TestCue_Text(t *testing.T) {
	assert.Equal(t, "turn left", Cue{Kind: TurnLeft}.Text())
	assert.Equal(t, "continue straight", Cue{Kind: TurnStraight}.Text())
	assert.Equal(t, "1.500,2,RIGHT,90.00,turn right", FormatCue(Cue{T: 1.5, Index: 2, Kind: TurnRight, Angle: 90}))
}
