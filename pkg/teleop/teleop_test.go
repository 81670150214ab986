package teleop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/pose"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

type velocityLog struct {
	sent []joy.Velocity
}

func (v *velocityLog) SendVelocity(cmd joy.Velocity) error {
	v.sent = append(v.sent, cmd)
	return nil
}

type markerLog struct {
	markers []waypoint.Marker
}

func (m *markerLog) PublishMarker(mk waypoint.Marker) error {
	m.markers = append(m.markers, mk)
	return nil
}

// flakyStore fails the first n appends.
type flakyStore struct {
	failures int
	appended []waypoint.Waypoint
}

func (s *flakyStore) Append(wp waypoint.Waypoint) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("device busy")
	}
	s.appended = append(s.appended, wp)
	return nil
}

func (s *flakyStore) Count() (int, error) { return len(s.appended), nil }
func (s *flakyStore) Close() error        { return nil }

func joySample(forward, turn float64, capture bool) joy.Input {
	return joy.Input{
		Axes:    []float64{turn, 0, 0, forward},
		Buttons: []bool{false, false, capture, false},
	}
}

type harness struct {
	ctrl     *Controller
	velocity *velocityLog
	markers  *markerLog
	path     string
}

func newHarness(t *testing.T, store waypoint.Store) *harness {
	t.Helper()
	h := &harness{
		velocity: &velocityLog{},
		markers:  &markerLog{},
	}
	if store == nil {
		h.path = filepath.Join(t.TempDir(), "waypoints.csv")
		store = waypoint.NewCSVStore(h.path)
	}
	ctrl, err := NewController(Config{
		Store:    store,
		Markers:  h.markers,
		Velocity: h.velocity,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) lines(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestController_CaptureScenario(t *testing.T) {
	h := newHarness(t, nil)

	p := pose.Pose{X: 1, Y: 2, Orientation: quat.Number{Real: 1}}
	h.ctrl.SubmitPose(p)
	h.ctrl.SubmitInput(joySample(0, 0, true))
	h.ctrl.step()

	assert.Equal(t, "1.000000,2.000000,0.000000\n", h.lines(t))
	require.Len(t, h.markers.markers, 1)
	assert.Equal(t, 0, h.markers.markers[0].ID)
	if diff := cmp.Diff(p, h.markers.markers[0].Pose); diff != "" {
		t.Errorf("marker pose mismatch (-want +got):\n%s", diff)
	}

	st := <-h.ctrl.States()
	require.NotNil(t, st.Waypoint)
	assert.Equal(t, 0, st.Waypoint.ID)
	assert.Equal(t, 1, st.Recorded)
	assert.False(t, st.Pending)
}

func TestController_HeldButtonCapturesEveryTick(t *testing.T) {
	h := newHarness(t, nil)
	const ticks = 4

	for i := 0; i < ticks; i++ {
		h.ctrl.SubmitInput(joySample(0, 0, true))
		h.ctrl.step()
	}

	assert.Equal(t, ticks, len(h.markers.markers))
	for i, mk := range h.markers.markers {
		assert.Equal(t, i, mk.ID)
	}
	n, err := waypoint.NewCSVStore(h.path).Count()
	require.NoError(t, err)
	assert.Equal(t, ticks, n)
}

func TestController_SeveralPressesInOneTickCaptureOnce(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SubmitInput(joySample(0, 0, true))
	h.ctrl.SubmitInput(joySample(0, 0, false))
	h.ctrl.SubmitInput(joySample(0, 0, true))
	h.ctrl.step()
	h.ctrl.step()

	assert.Len(t, h.markers.markers, 1)
}

func TestController_IdleNeverWrites(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 25; i++ {
		h.ctrl.SubmitPose(pose.FromYaw(float64(i), float64(-i), 0.1*float64(i)))
		h.ctrl.SubmitInput(joySample(0.1*float64(i), -0.1, false))
		h.ctrl.step()
	}

	assert.Empty(t, h.lines(t))
	assert.Empty(t, h.markers.markers)
	assert.Len(t, h.velocity.sent, 25)
}

func TestController_VelocityPassthroughEveryTick(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SubmitInput(joySample(0.5, -0.3, false))
	for i := 0; i < 3; i++ {
		h.ctrl.step()
	}

	want := []joy.Velocity{
		{Linear: 0.5, Angular: -0.3},
		{Linear: 0.5, Angular: -0.3},
		{Linear: 0.5, Angular: -0.3},
	}
	assert.Equal(t, want, h.velocity.sent)
}

func TestController_VelocityBeforeAnyInputIsZero(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.step()
	assert.Equal(t, []joy.Velocity{{}}, h.velocity.sent)
}

func TestController_InvalidInputSkipped(t *testing.T) {
	h := newHarness(t, nil)

	h.ctrl.SubmitInput(joySample(0.5, -0.3, false))
	h.ctrl.step()
	h.ctrl.SubmitInput(joy.Input{Axes: []float64{1}, Buttons: []bool{true, true, true}})
	h.ctrl.step()

	assert.Equal(t, joy.Velocity{Linear: 0.5, Angular: -0.3}, h.velocity.sent[1])
	assert.Empty(t, h.markers.markers)

	var logged bool
	for len(h.ctrl.Logs()) > 0 {
		if msg := <-h.ctrl.Logs(); strings.Contains(msg, "Skipped controller sample") {
			logged = true
		}
	}
	assert.True(t, logged, "invalid sample should be logged")
}

func TestController_StoreFailureRetriesNextTick(t *testing.T) {
	store := &flakyStore{failures: 1}
	h := newHarness(t, store)

	h.ctrl.SubmitInput(joySample(0, 0, true))
	h.ctrl.step()

	st := <-h.ctrl.States()
	assert.Error(t, st.Error)
	assert.True(t, st.Pending, "capture must stay pending after a failed write")
	assert.Empty(t, h.markers.markers)

	h.ctrl.step()
	st = <-h.ctrl.States()
	assert.NoError(t, st.Error)
	require.NotNil(t, st.Waypoint)
	assert.Equal(t, 0, st.Waypoint.ID, "failed write must not consume an id")
	assert.Len(t, store.appended, 1)
}

func TestController_FirstID(t *testing.T) {
	store := &flakyStore{}
	ctrl, err := NewController(Config{Store: store, FirstID: 12})
	require.NoError(t, err)

	ctrl.SubmitInput(joySample(0, 0, true))
	ctrl.step()
	require.Len(t, store.appended, 1)
	assert.Equal(t, 12, store.appended[0].ID)
}

func TestController_QueueDropsOldest(t *testing.T) {
	store := &flakyStore{}
	ctrl, err := NewController(Config{Store: store, QueueSize: 2})
	require.NoError(t, err)

	ctrl.SubmitPose(pose.FromYaw(1, 0, 0))
	ctrl.SubmitPose(pose.FromYaw(2, 0, 0))
	ctrl.SubmitPose(pose.FromYaw(3, 0, 0))
	ctrl.step()

	assert.Equal(t, 3.0, ctrl.Pose().X)
}

func TestController_QueueOverflowKeepsCapture(t *testing.T) {
	store := &flakyStore{}
	ctrl, err := NewController(Config{Store: store, QueueSize: 4})
	require.NoError(t, err)

	ctrl.SubmitInput(joySample(0, 0, true))
	for i := 0; i < 4; i++ {
		ctrl.SubmitInput(joySample(0.5, 0, false))
	}
	ctrl.step()

	require.Len(t, store.appended, 1)
	assert.Equal(t, 0, store.appended[0].ID)
	assert.Equal(t, 0.5, ctrl.trigger.Velocity().Linear)

	var dropped bool
	for len(ctrl.Logs()) > 0 {
		if strings.Contains(<-ctrl.Logs(), "dropped 1 samples") {
			dropped = true
		}
	}
	assert.True(t, dropped, "expected a log line for the dropped sample")

	ctrl.step()
	assert.Len(t, store.appended, 1)
}

func TestController_QueueOverflowReleasedSampleNoCapture(t *testing.T) {
	store := &flakyStore{}
	ctrl, err := NewController(Config{Store: store, QueueSize: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ctrl.SubmitInput(joySample(0, 0, false))
	}
	ctrl.step()

	assert.Empty(t, store.appended)
}

func TestController_RequiresStore(t *testing.T) {
	_, err := NewController(Config{})
	assert.Error(t, err)
}

func TestController_StartStopsOnCancel(t *testing.T) {
	store := &flakyStore{}
	ctrl, err := NewController(Config{Store: store, Hz: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	ctrl.SubmitInput(joySample(0, 0, true))
	require.Eventually(t, func() bool {
		select {
		case st := <-ctrl.States():
			return st.Recorded == 1
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
