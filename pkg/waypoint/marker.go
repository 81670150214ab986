package waypoint

import (
	"time"

	"github.com/gwillem/waypointer/pkg/pose"
)

// MarkerType is the rendered shape.
type MarkerType string

// MarkerAction tells the renderer what to do with the marker.
type MarkerAction string

const (
	MarkerArrow MarkerType   = "arrow"
	MarkerAdd   MarkerAction = "add"
)

// Marker fixed values.
const (
	MarkerNamespace = "waypoints"
	MarkerFrame     = "map"
)

// Vector3 is a marker scale.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Color is RGBA with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Marker describes one visualization marker.
type Marker struct {
	Namespace string
	ID        int
	Frame     string
	Type      MarkerType
	Action    MarkerAction
	Pose      pose.Pose
	Scale     Vector3
	Color     Color
	Stamp     time.Time
}

// NewArrowMarker builds the solid red arrow shown for a waypoint:
// 0.3 long, 0.1 wide, flat.
func NewArrowMarker(id int, p pose.Pose, stamp time.Time) Marker {
	return Marker{
		Namespace: MarkerNamespace,
		ID:        id,
		Frame:     MarkerFrame,
		Type:      MarkerArrow,
		Action:    MarkerAdd,
		Pose:      p,
		Scale:     Vector3{X: 0.3, Y: 0.1, Z: 0.0},
		Color:     Color{R: 1, G: 0, B: 0, A: 1},
		Stamp:     stamp,
	}
}
