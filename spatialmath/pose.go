package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() is the position in 3D and the Orientation() is the rotation applied
// before translation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
	// Transform applies the pose to a point expressed in the pose's own frame.
	Transform(p r3.Vector) r3.Vector
}

type basicPose struct {
	point r3.Vector
	rot   quat.Number
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return &basicPose{rot: quat.Number{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basicPose{point: p, rot: Normalize(o.Quaternion())}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basicPose{point: point, rot: quat.Number{Real: 1}}
}

// NewPoseFromOrientation returns a pose with no translation and the given orientation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

func (p *basicPose) Point() r3.Vector {
	return p.point
}

func (p *basicPose) Orientation() Orientation {
	q := Quaternion(p.rot)
	return &q
}

func (p *basicPose) Transform(v r3.Vector) r3.Vector {
	return rotate(p.rot, v).Add(p.point)
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)).
// It converts the poses to transforms, multiplies them, and returns the resulting pose.
func Compose(a, b Pose) Pose {
	aq := Normalize(a.Orientation().Quaternion())
	bq := Normalize(b.Orientation().Quaternion())
	return &basicPose{
		point: rotate(aq, b.Point()).Add(a.Point()),
		rot:   Normalize(quat.Mul(aq, bq)),
	}
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p)
// will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(Normalize(p.Orientation().Quaternion()))
	return &basicPose{
		point: rotate(inv, p.Point()).Mul(-1),
		rot:   inv,
	}
}

// PoseDelta returns the difference between two Poses, such that Compose(a, PoseDelta(a, b)) == b.
func PoseDelta(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincident(a, b) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincident will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
func PoseAlmostCoincident(a, b Pose) bool {
	const epsilon = 1e-8
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// rotate applies the unit quaternion q to v as q * v * q^-1.
func rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
