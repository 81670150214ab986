// Package pose tracks the robot's latest estimated pose.
package pose

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position plus orientation in the map frame.
//
// Orientation uses gonum's quaternion layout: Real is w, Imag/Jmag/Kmag are
// x/y/z. Only w and z are used for planar yaw.
type Pose struct {
	X, Y, Z     float64
	Orientation quat.Number
}

// Identity returns the pose at the origin facing along +x.
func Identity() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// FromYaw builds a planar pose rotated by yaw radians about the vertical axis.
func FromYaw(x, y, yaw float64) Pose {
	return Pose{
		X: x,
		Y: y,
		Orientation: quat.Number{
			Real: math.Cos(yaw / 2),
			Kmag: math.Sin(yaw / 2),
		},
	}
}

// Yaw extracts the heading in radians, assuming roll and pitch are zero.
// (z=1, w=0) yields +π.
func (p Pose) Yaw() float64 {
	w, z := p.Orientation.Real, p.Orientation.Kmag
	return math.Atan2(2*w*z, 1-2*z*z)
}

// Tracker holds the most recent pose. Updates swap in a new value
// wholesale, so readers never see a half-written pose.
type Tracker struct {
	current atomic.Pointer[Pose]
}

// NewTracker returns a tracker with no pose received yet.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update replaces the stored pose.
func (t *Tracker) Update(p Pose) {
	t.current.Store(&p)
}

// Current returns the latest pose, or Identity if none has arrived.
func (t *Tracker) Current() Pose {
	if p := t.current.Load(); p != nil {
		return *p
	}
	return Identity()
}
