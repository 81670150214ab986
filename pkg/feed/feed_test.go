package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/pose"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

type sink struct {
	mu     sync.Mutex
	poses  []pose.Pose
	inputs []joy.Input
	logs   []string
}

func (s *sink) SubmitPose(p pose.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poses = append(s.poses, p)
}

func (s *sink) SubmitInput(in joy.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, in)
}

func (s *sink) Logf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, format)
}

func (s *sink) poseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.poses)
}

func TestParsePose(t *testing.T) {
	p, err := ParsePose([]byte("1.5,-2,0.1,0,0,0.7071,0.7071\n"))
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.X)
	assert.Equal(t, -2.0, p.Y)
	assert.Equal(t, 0.1, p.Z)
	assert.Equal(t, quat.Number{Real: 0.7071, Kmag: 0.7071}, p.Orientation)

	p, err = ParsePose([]byte("1, 2, 0, 1"))
	require.NoError(t, err)
	assert.Equal(t, pose.Pose{X: 1, Y: 2, Orientation: quat.Number{Real: 1}}, p)
}

func TestParsePose_Errors(t *testing.T) {
	for _, in := range []string{"", "  ", "1,2,3", "1,2,x,1", "1,2,3,4,5"} {
		_, err := ParsePose([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput([]byte("-0.3,0,0,0.5;0,0,1,false"))
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.3, 0, 0, 0.5}, in.Axes)
	assert.Equal(t, []bool{false, false, true, false}, in.Buttons)

	in, err = ParseInput([]byte(";"))
	require.NoError(t, err)
	assert.Empty(t, in.Axes)
	assert.Empty(t, in.Buttons)
}

func TestParseInput_Errors(t *testing.T) {
	for _, in := range []string{"", "0.1,0.2", "a;1", "0.1;2"} {
		_, err := ParseInput([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestScanInputs(t *testing.T) {
	s := &sink{}
	r := strings.NewReader("0,0,0,0.5;0,0,1\n\nbroken\n0.1,0,0,0;0,0,0\n")

	require.NoError(t, ScanInputs(r, InputHandler(s, s)))

	require.Len(t, s.inputs, 2)
	assert.True(t, s.inputs[0].Buttons[2])
	assert.Equal(t, 0.1, s.inputs[1].Axes[0])
	assert.Len(t, s.logs, 1)
}

func TestServePackets(t *testing.T) {
	conn, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)

	s := &sink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServePackets(ctx, conn, 0, PoseHandler(s, s)) }()

	out, err := net.Dial("udp", conn.LocalAddr().String())
	require.NoError(t, err)
	defer out.Close()

	require.Eventually(t, func() bool {
		_, _ = out.Write([]byte("1,2,0,1"))
		return s.poseCount() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServePackets did not stop")
	}
}

func readDatagram(t *testing.T, conn net.PacketConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestVelocitySender(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	s, err := NewVelocitySender(conn.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendVelocity(joy.Velocity{Linear: 0.5, Angular: -0.3}))
	assert.Equal(t, "0.5000,-0.3000", string(readDatagram(t, conn)))
}

func TestMarkerSender(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	s, err := NewMarkerSender(conn.LocalAddr().String())
	require.NoError(t, err)
	defer s.Close()

	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PublishMarker(waypoint.NewArrowMarker(3, pose.FromYaw(1, 2, 0), stamp)))

	var got MarkerMsg
	require.NoError(t, json.Unmarshal(readDatagram(t, conn), &got))
	assert.Equal(t, "waypoints", got.Namespace)
	assert.Equal(t, 3, got.ID)
	assert.Equal(t, "map", got.FrameID)
	assert.Equal(t, "arrow", got.Type)
	assert.Equal(t, 1.0, got.Pose.Position.X)
	assert.Equal(t, 1.0, got.Pose.Orientation.W)
	assert.Equal(t, waypoint.Vector3{X: 0.3, Y: 0.1}, got.Scale)
	assert.Equal(t, waypoint.Color{R: 1, A: 1}, got.Color)
	assert.True(t, stamp.Equal(got.Stamp))
}

func TestSenders_EmptyAddressDiscards(t *testing.T) {
	v, err := NewVelocitySender("")
	require.NoError(t, err)
	assert.NoError(t, v.SendVelocity(joy.Velocity{Linear: 1}))
	assert.NoError(t, v.Close())

	m, err := NewMarkerSender("")
	require.NoError(t, err)
	assert.NoError(t, m.PublishMarker(waypoint.Marker{}))
}

type scriptedReader struct {
	mu    sync.Mutex
	calls int
}

func (r *scriptedReader) ReadInput(ctx context.Context) (joy.Input, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls == 1 {
		return joy.Input{}, errors.New("bus timeout")
	}
	return joy.Input{Axes: []float64{float64(r.calls)}}, nil
}

func TestPollInputs(t *testing.T) {
	s := &sink{}
	r := &scriptedReader{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- PollInputs(ctx, r, 200, s, s) }()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.inputs) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, 2.0, s.inputs[0].Axes[0], "first read failed and must be skipped")
	assert.NotEmpty(t, s.logs)
}
