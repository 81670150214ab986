package feed

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

// UDPSender writes datagrams to a fixed address. A sender created with an
// empty address discards everything.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender creates a UDP sender for the given address.
func NewUDPSender(addr string) (*UDPSender, error) {
	if addr == "" {
		return &UDPSender{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPSender{conn: conn}, nil
}

// Close releases the UDP socket.
func (s *UDPSender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *UDPSender) write(payload []byte) error {
	if s == nil || s.conn == nil {
		return nil
	}
	_, err := s.conn.Write(payload)
	return err
}

// VelocitySender sends "linear,angular" CSV datagrams.
type VelocitySender struct {
	*UDPSender
}

// NewVelocitySender creates a velocity sink for addr.
func NewVelocitySender(addr string) (*VelocitySender, error) {
	s, err := NewUDPSender(addr)
	if err != nil {
		return nil, fmt.Errorf("velocity output: %w", err)
	}
	return &VelocitySender{s}, nil
}

// SendVelocity writes one command.
func (s *VelocitySender) SendVelocity(v joy.Velocity) error {
	return s.write([]byte(fmt.Sprintf("%.4f,%.4f", v.Linear, v.Angular)))
}

// MarkerSender sends each marker as a JSON datagram.
type MarkerSender struct {
	*UDPSender
}

// NewMarkerSender creates a marker sink for addr.
func NewMarkerSender(addr string) (*MarkerSender, error) {
	s, err := NewUDPSender(addr)
	if err != nil {
		return nil, fmt.Errorf("marker output: %w", err)
	}
	return &MarkerSender{s}, nil
}

type vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type quatMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type poseMsg struct {
	Position    vec3    `json:"position"`
	Orientation quatMsg `json:"orientation"`
}

// MarkerMsg is the JSON shape of a marker on the wire.
type MarkerMsg struct {
	Namespace string           `json:"ns"`
	ID        int              `json:"id"`
	FrameID   string           `json:"frame_id"`
	Stamp     time.Time        `json:"stamp"`
	Type      string           `json:"type"`
	Action    string           `json:"action"`
	Pose      poseMsg          `json:"pose"`
	Scale     waypoint.Vector3 `json:"scale"`
	Color     waypoint.Color   `json:"color"`
}

// EncodeMarker converts a marker to its wire form.
func EncodeMarker(m waypoint.Marker) MarkerMsg {
	q := m.Pose.Orientation
	return MarkerMsg{
		Namespace: m.Namespace,
		ID:        m.ID,
		FrameID:   m.Frame,
		Stamp:     m.Stamp,
		Type:      string(m.Type),
		Action:    string(m.Action),
		Pose: poseMsg{
			Position:    vec3{X: m.Pose.X, Y: m.Pose.Y, Z: m.Pose.Z},
			Orientation: quatMsg{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real},
		},
		Scale: m.Scale,
		Color: m.Color,
	}
}

// PublishMarker writes one marker.
func (s *MarkerSender) PublishMarker(m waypoint.Marker) error {
	data, err := json.Marshal(EncodeMarker(m))
	if err != nil {
		return err
	}
	return s.write(data)
}
