// Package waypoint records captured poses as waypoints and emits a marker
// for each one.
package waypoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/waypointer/pkg/pose"
)

// ErrStore wraps any failure to open or write the waypoint store.
var ErrStore = errors.New("waypoint store")

// Waypoint is one recorded place and heading. ID is only used for the
// marker; stores are free to drop it.
type Waypoint struct {
	ID  int
	X   float64
	Y   float64
	Yaw float64
}

// Store persists waypoints in capture order.
type Store interface {
	Append(Waypoint) error
	Count() (int, error)
	Close() error
}

// MarkerSink receives visual markers.
type MarkerSink interface {
	PublishMarker(Marker) error
}

// PoseSource provides the pose to record.
type PoseSource interface {
	Current() pose.Pose
}

// Recorder turns capture requests into stored waypoints.
type Recorder struct {
	source  PoseSource
	store   Store
	markers MarkerSink
	nextID  int
	now     func() time.Time
}

// NewRecorder creates a recorder. markers may be nil.
func NewRecorder(source PoseSource, store Store, markers MarkerSink) *Recorder {
	return &Recorder{
		source:  source,
		store:   store,
		markers: markers,
		now:     time.Now,
	}
}

// NextID returns the ID the next successful capture will get.
func (r *Recorder) NextID() int {
	return r.nextID
}

// SetNextID moves the ID counter, e.g. to continue after existing records.
func (r *Recorder) SetNextID(id int) {
	r.nextID = id
}

// Tick services one capture request.
//
// ok reports whether a waypoint was stored. When ok is false and err wraps
// ErrStore, nothing changed and the caller should keep the request pending.
// A marker failure after a successful write returns ok=true with an error.
func (r *Recorder) Tick(capture bool) (wp Waypoint, ok bool, err error) {
	if !capture {
		return Waypoint{}, false, nil
	}

	p := r.source.Current()
	wp = Waypoint{
		ID:  r.nextID,
		X:   p.X,
		Y:   p.Y,
		Yaw: p.Yaw(),
	}

	if err := r.store.Append(wp); err != nil {
		return Waypoint{}, false, err
	}
	r.nextID++

	if r.markers != nil {
		if err := r.markers.PublishMarker(NewArrowMarker(wp.ID, p, r.now())); err != nil {
			return wp, true, fmt.Errorf("publish marker %d: %w", wp.ID, err)
		}
	}
	return wp, true, nil
}
