package scene

import (
	"math"

	"github.com/roach88/replica/internal/variant"
)

// SmoothedTransformName is the class name of the built-in smoothing
// component.
const SmoothedTransformName = "SmoothedTransform"

const (
	targetPositionAttr    = "Target Position"
	targetRotationAttr    = "Target Rotation"
	smoothingConstantAttr = "Smoothing Constant"

	// Below this squared distance Update lands exactly on the target.
	snapThresholdSq = 1e-6
)

// SmoothedTransformClass returns the class definition of the built-in
// smoothing component.
func SmoothedTransformClass() Class {
	return Class{
		Name: SmoothedTransformName,
		Attributes: []AttributeInfo{
			{Name: targetPositionAttr, Type: variant.TypeVector3, Net: true},
			{Name: targetRotationAttr, Type: variant.TypeQuaternion, Default: variant.IdentityQuaternion, Net: true},
			{Name: smoothingConstantAttr, Type: variant.TypeFloat, Default: variant.Float(50), Net: true},
		},
		Factory: func(c *Component) any { return &SmoothedTransform{c: c} },
	}
}

// SmoothedTransform moves its node toward a target position and rotation.
// While it is attached, the node's network position and rotation
// attributes received from a snapshot set the target instead of the
// transform.
type SmoothedTransform struct {
	c     *Component
	snaps int
}

func (st *SmoothedTransform) TargetPosition() variant.Vector3 {
	v, _ := st.c.Get(targetPositionAttr)
	return v.(variant.Vector3)
}

func (st *SmoothedTransform) TargetRotation() variant.Quaternion {
	v, _ := st.c.Get(targetRotationAttr)
	return v.(variant.Quaternion)
}

func (st *SmoothedTransform) SetTargetPosition(p variant.Vector3) {
	_ = st.c.Set(targetPositionAttr, p)
}

func (st *SmoothedTransform) SetTargetRotation(q variant.Quaternion) {
	_ = st.c.Set(targetRotationAttr, q)
}

// Snaps returns how many times SnapToTarget was called.
func (st *SmoothedTransform) Snaps() int { return st.snaps }

// SnapToTarget moves the node onto the target immediately.
func (st *SmoothedTransform) SnapToTarget() {
	st.snaps++
	n := st.c.Node()
	if n == nil {
		return
	}
	n.SetPosition(st.TargetPosition())
	n.SetRotation(st.TargetRotation())
}

// Update advances the interpolation by dt seconds.
func (st *SmoothedTransform) Update(dt float32) {
	n := st.c.Node()
	if n == nil || dt <= 0 {
		return
	}
	k, _ := st.c.Get(smoothingConstantAttr)
	t := float32(1 - math.Exp(-float64(k.(variant.Float))*float64(dt)))

	pos, target := n.Position(), st.TargetPosition()
	d := variant.Vector3{X: target.X - pos.X, Y: target.Y - pos.Y, Z: target.Z - pos.Z}
	if d.X*d.X+d.Y*d.Y+d.Z*d.Z < snapThresholdSq {
		n.SetPosition(target)
	} else {
		n.SetPosition(variant.Vector3{X: pos.X + d.X*t, Y: pos.Y + d.Y*t, Z: pos.Z + d.Z*t})
	}
	n.SetRotation(nlerp(n.Rotation(), st.TargetRotation(), t))
}

// nlerp interpolates along the shorter arc and renormalizes.
func nlerp(a, b variant.Quaternion, t float32) variant.Quaternion {
	if a.W*b.W+a.X*b.X+a.Y*b.Y+a.Z*b.Z < 0 {
		b = variant.Quaternion{W: -b.W, X: -b.X, Y: -b.Y, Z: -b.Z}
	}
	q := variant.Quaternion{
		W: a.W + (b.W-a.W)*t,
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
	l := float32(math.Sqrt(float64(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)))
	if l == 0 {
		return b
	}
	return variant.Quaternion{W: q.W / l, X: q.X / l, Y: q.Y / l, Z: q.Z / l}
}
