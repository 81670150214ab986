// Package teleop runs the fixed-rate loop that drives the base from
// controller input and records waypoints on request.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/pose"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

// VelocitySink receives the velocity command every tick.
type VelocitySink interface {
	SendVelocity(joy.Velocity) error
}

// State is a snapshot published after every tick.
type State struct {
	Pose      pose.Pose
	Velocity  joy.Velocity
	Waypoint  *waypoint.Waypoint // set on ticks that stored one
	Recorded  int
	Pending   bool
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Hz        int
	Map       joy.MapFunc // nil means joy.DefaultMapping
	Store     waypoint.Store
	Markers   waypoint.MarkerSink
	Velocity  VelocitySink
	QueueSize int
	// FirstID is the ID given to the first waypoint of this run.
	FirstID int
}

// Controller owns the tick loop. Feeds hand it poses and controller samples
// through SubmitPose and SubmitInput; everything else happens on the loop
// goroutine.
type Controller struct {
	hz       int
	tracker  *pose.Tracker
	trigger  *joy.Trigger
	recorder *waypoint.Recorder
	velocity VelocitySink

	poses  chan pose.Pose
	inputs chan joy.Input

	// Set by SubmitInput when a full queue evicts samples.
	droppedInputs  atomic.Int64
	droppedCapture atomic.Bool

	recorded int

	mu      sync.RWMutex
	running bool
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller. Store is required.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("waypoint store is required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	tracker := pose.NewTracker()
	recorder := waypoint.NewRecorder(tracker, cfg.Store, cfg.Markers)
	recorder.SetNextID(cfg.FirstID)

	return &Controller{
		hz:       cfg.Hz,
		tracker:  tracker,
		trigger:  joy.NewTrigger(cfg.Map),
		recorder: recorder,
		velocity: cfg.Velocity,
		poses:    make(chan pose.Pose, cfg.QueueSize),
		inputs:   make(chan joy.Input, cfg.QueueSize),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Pose returns the latest tracked pose.
func (c *Controller) Pose() pose.Pose {
	return c.tracker.Current()
}

// Logf queues a timestamped log message. Messages are dropped if nobody is
// reading.
func (c *Controller) Logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// SubmitPose queues a pose update for the next tick. It never blocks; when
// the queue is full the oldest pose is discarded.
func (c *Controller) SubmitPose(p pose.Pose) {
	offer(c.poses, p, nil)
}

// SubmitInput queues a controller sample for the next tick. It never blocks;
// when the queue is full the oldest sample is discarded, but a capture
// request it carried is kept for the next tick.
func (c *Controller) SubmitInput(in joy.Input) {
	offer(c.inputs, in, func(old joy.Input) {
		c.droppedInputs.Add(1)
		if c.trigger.Requests(old) {
			c.droppedCapture.Store(true)
		}
	})
}

// offer sends v on ch, evicting the oldest entries until it fits. onDrop,
// if set, sees every evicted entry.
func offer[T any](ch chan T, v T, onDrop func(T)) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case old := <-ch:
			if onDrop != nil {
				onDrop(old)
			}
		default:
		}
	}
}

// Start runs the loop until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.Logf("Recording started at %d Hz, next waypoint id %d", c.hz, c.recorder.NextID())

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Logf("Recording stopped after %d waypoints", c.recorded)
			return ctx.Err()
		case <-ticker.C:
			c.step()
		}
	}
}

// step runs one tick: drain queued events, publish velocity, then service
// any pending capture.
func (c *Controller) step() {
	c.drain()

	st := State{Timestamp: time.Now()}

	vel := c.trigger.Velocity()
	if c.velocity != nil {
		if err := c.velocity.SendVelocity(vel); err != nil {
			c.Logf("Velocity error: %v", err)
			st.Error = err
		}
	}

	wp, ok, err := c.recorder.Tick(c.trigger.Pending())
	switch {
	case ok:
		c.trigger.Clear()
		c.recorded++
		st.Waypoint = &wp
		c.Logf("Waypoint %d saved: x=%.3f y=%.3f yaw=%.3f", wp.ID, wp.X, wp.Y, wp.Yaw)
		if err != nil {
			c.Logf("Marker error: %v", err)
			st.Error = err
		}
	case err != nil:
		// Nothing was stored; the capture stays pending for the next tick.
		c.Logf("Save error: %v", err)
		st.Error = err
	}

	st.Pose = c.tracker.Current()
	st.Velocity = vel
	st.Recorded = c.recorded
	st.Pending = c.trigger.Pending()
	c.sendState(st)
}

func (c *Controller) drain() {
poses:
	for {
		select {
		case p := <-c.poses:
			c.tracker.Update(p)
		default:
			break poses
		}
	}

inputs:
	for {
		select {
		case in := <-c.inputs:
			if err := c.trigger.Handle(in); err != nil {
				if errors.Is(err, joy.ErrInvalidInput) {
					c.Logf("Skipped controller sample: %v", err)
				} else {
					c.Logf("Controller mapping error: %v", err)
				}
			}
		default:
			break inputs
		}
	}

	if n := c.droppedInputs.Swap(0); n > 0 {
		c.Logf("Controller queue full, dropped %d samples", n)
	}
	if c.droppedCapture.Swap(false) {
		c.trigger.Request()
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}
