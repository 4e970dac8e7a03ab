package way_nav

import "github.com/go-gl/mathgl/mgl64"

// FramePlacement is a configured frame origin: position plus heading.
type FramePlacement struct {
	X   float64 `json:"x" mapstructure:"x"`
	Y   float64 `json:"y" mapstructure:"y"`
	Z   float64 `json:"z" mapstructure:"z"`
	Yaw float64 `json:"yaw" mapstructure:"yaw"`
}

// Frame maps the tracking (local) space into the fixed world space.
type Frame struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// IdentityFrame leaves tracking space unchanged.
func IdentityFrame() Frame {
	return Frame{Rotation: mgl64.QuatIdent()}
}

// FrameFromPlacement builds a frame from a configured placement.
func FrameFromPlacement(p FramePlacement) Frame {
	return Frame{Position: mgl64.Vec3{p.X, p.Y, p.Z}, Rotation: yawRotation(p.Yaw)}
}

// ToWorld maps a local pose into world space.
func (f Frame) ToWorld(local Pose) Pose {
	return Pose{
		Position: f.Position.Add(f.Rotation.Rotate(local.Position)),
		Rotation: f.Rotation.Mul(local.Rotation).Normalize(),
	}
}

// Up returns the frame's up axis in world space.
func (f Frame) Up() mgl64.Vec3 {
	return f.Rotation.Rotate(WorldUp)
}

// CameraTarget is a desired camera placement in world space.
type CameraTarget struct {
	Position mgl64.Vec3
	Up       mgl64.Vec3
	Forward  mgl64.Vec3
}

// PlaceCamera returns the frame under which the local camera pose appears at
// target: the frame up matches target.Up and the camera's horizontal heading
// matches target.Forward.
func PlaceCamera(local Pose, target CameraTarget) Frame {
	up := normalizeOr(target.Up, WorldUp)
	tilt := mgl64.QuatIdent()
	if up.Dot(WorldUp) < 1-1e-12 {
		tilt = mgl64.QuatBetweenVectors(WorldUp, up)
	}
	yaw := SignedAngle(flatten(local.Forward()), flatten(target.Forward))
	rot := tilt.Mul(yawRotation(yaw)).Normalize()
	return Frame{
		Position: target.Position.Sub(rot.Rotate(local.Position)),
		Rotation: rot,
	}
}

// InterpolateCamera blends two camera placements at normalized time t using
// smoothstep easing: position is lerped, up and forward are slerped.
func InterpolateCamera(from, to CameraTarget, t float64) CameraTarget {
	s := Smoothstep(t)
	return CameraTarget{
		Position: lerp(from.Position, to.Position, s),
		Up:       SlerpDir(from.Up, to.Up, s),
		Forward:  SlerpDir(from.Forward, to.Forward, s),
	}
}
