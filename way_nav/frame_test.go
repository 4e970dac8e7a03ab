package way_nav

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestPlaceCamera_PutsCameraAtTarget(t *testing.T) {
	local := NewPose(mgl64.Vec3{1, 1.5, -2}, yawRotation(40))
	target := CameraTarget{
		Position: mgl64.Vec3{12, 1.5, 7},
		Up:       WorldUp,
		Forward:  mgl64.Vec3{1, 0, 0},
	}

	frame := PlaceCamera(local, target)
	world := frame.ToWorld(local)

	assertVec(t, target.Position, world.Position)
	assertVec(t, target.Forward, flatten(world.Forward()).Normalize())
	assertVec(t, WorldUp, frame.Up())
}

func TestFrameFromPlacement(t *testing.T) {
	f := FrameFromPlacement(FramePlacement{X: 3, Z: -1, Yaw: 90})
	world := f.ToWorld(NewPose(mgl64.Vec3{0, 0, 2}, mgl64.QuatIdent()))

	// Local forward two metres becomes two metres along the placement heading.
	assertVec(t, mgl64.Vec3{3, 0, -1}.Add(yawRotation(90).Rotate(mgl64.Vec3{0, 0, 2})), world.Position)
	assert.InDelta(t, 90, SignedAngle(WorldForward, world.Forward()), 1e-9)
}

func TestInterpolateCamera_Midpoint(t *testing.T) {
	from := CameraTarget{Position: mgl64.Vec3{0, 1, 0}, Up: WorldUp, Forward: mgl64.Vec3{0, 0, 1}}
	to := CameraTarget{Position: mgl64.Vec3{4, 1, 8}, Up: WorldUp, Forward: mgl64.Vec3{1, 0, 0}}

	for _, tt := range []float64{0.25, 0.5, 0.75} {
		got := InterpolateCamera(from, to, tt)
		s := Smoothstep(tt)
		assertVec(t, lerp(from.Position, to.Position, s), got.Position)
		assertVec(t, SlerpDir(from.Forward, to.Forward, s), got.Forward)
		assertVec(t, WorldUp, got.Up)
	}

	mid := InterpolateCamera(from, to, 0.5)
	assertVec(t, mgl64.Vec3{2, 1, 4}, mid.Position)
	assert.InDelta(t, SignedAngle(from.Forward, to.Forward)/2, SignedAngle(from.Forward, mid.Forward), 1e-9)
	assertVec(t, to.Position, InterpolateCamera(from, to, 1).Position)
}
