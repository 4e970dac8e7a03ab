package way_nav

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis conventions: +Y is up, +Z is forward, +X is right.
var (
	WorldUp      = mgl64.Vec3{0, 1, 0}
	WorldForward = mgl64.Vec3{0, 0, 1}
)

// Pose is a position plus orientation. Poses are passed by value.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewPose builds a pose, replacing a zero quaternion with identity.
func NewPose(pos mgl64.Vec3, rot mgl64.Quat) Pose {
	if rot.W == 0 && rot.V.Len() == 0 {
		rot = mgl64.QuatIdent()
	}
	return Pose{Position: pos, Rotation: rot.Normalize()}
}

// Forward returns the pose's forward axis in the pose's parent frame.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Rotation.Rotate(WorldForward)
}

// Up returns the pose's up axis in the pose's parent frame.
func (p Pose) Up() mgl64.Vec3 {
	return p.Rotation.Rotate(WorldUp)
}

// flatten zeroes the vertical component.
func flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// normalizeOr returns the unit vector of v, or fallback when v is degenerate.
func normalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if v.Len() < 1e-9 {
		return fallback
	}
	return v.Normalize()
}

// distance returns the Euclidean distance between two points.
func distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// SignedAngle returns the angle in degrees from a to b about the up axis,
// in (-180, 180]. Positive is clockwise seen from above, i.e. a right turn
// when walking from +X toward +Z.
func SignedAngle(a, b mgl64.Vec3) float64 {
	cross := a.X()*b.Z() - a.Z()*b.X()
	dot := a.X()*b.X() + a.Z()*b.Z()
	deg := mgl64.RadToDeg(math.Atan2(cross, dot))
	if deg <= -180 {
		deg += 360
	}
	return deg
}

// yawRotation returns the rotation that turns a flattened direction by deg
// degrees as measured by SignedAngle.
func yawRotation(deg float64) mgl64.Quat {
	return mgl64.QuatRotate(-mgl64.DegToRad(deg), WorldUp)
}

// Smoothstep is the cubic ease 3t²-2t³ with t clamped to [0, 1].
func Smoothstep(t float64) float64 {
	t = clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

// lerp linearly interpolates between two points.
func lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// SlerpDir spherically interpolates between two unit directions.
// Antiparallel inputs rotate about the up axis.
func SlerpDir(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	a = normalizeOr(a, WorldForward)
	b = normalizeOr(b, WorldForward)
	dot := clamp(a.Dot(b), -1, 1)
	if dot > 1-1e-12 {
		return b
	}
	omega := math.Acos(dot)
	if math.Pi-omega < 1e-9 {
		ortho := normalizeOr(WorldUp.Cross(a), mgl64.Vec3{1, 0, 0})
		return a.Mul(math.Cos(omega * t)).Add(ortho.Mul(math.Sin(omega * t)))
	}
	s := math.Sin(omega)
	wa := math.Sin((1-t)*omega) / s
	wb := math.Sin(t*omega) / s
	return a.Mul(wa).Add(b.Mul(wb)).Normalize()
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
