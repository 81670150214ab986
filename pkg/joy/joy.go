// Package joy turns hand-controller samples into velocity commands and
// capture requests.
package joy

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a sample lacks an axis or button slot the
// mapping needs.
var ErrInvalidInput = errors.New("invalid controller input")

// Input is one raw controller sample.
type Input struct {
	Axes    []float64
	Buttons []bool
}

// Velocity is the command sent to the drive base.
type Velocity struct {
	Linear  float64
	Angular float64
}

// Command is what a single sample asks the control loop to do.
type Command struct {
	Velocity Velocity
	Capture  bool
}

// MapFunc converts a sample into a command. It may be called from feed
// goroutines as well as the control loop, so it must not keep state.
type MapFunc func(Input) (Command, error)

// Mapping selects which axes drive the base and which button captures.
type Mapping struct {
	ForwardAxis   int `json:"forward_axis"`
	TurnAxis      int `json:"turn_axis"`
	CaptureButton int `json:"capture_button"`
}

// DefaultMapping matches a Joy-Con style pad: right stick vertical drives,
// left stick horizontal turns, button 2 captures.
func DefaultMapping() Mapping {
	return Mapping{ForwardAxis: 3, TurnAxis: 0, CaptureButton: 2}
}

// Apply maps axes straight through to velocity. There is no deadzone or
// filtering, and a held capture button reports Capture on every sample.
func (m Mapping) Apply(in Input) (Command, error) {
	if !inRange(m.ForwardAxis, len(in.Axes)) {
		return Command{}, fmt.Errorf("%w: forward axis %d, sample has %d axes", ErrInvalidInput, m.ForwardAxis, len(in.Axes))
	}
	if !inRange(m.TurnAxis, len(in.Axes)) {
		return Command{}, fmt.Errorf("%w: turn axis %d, sample has %d axes", ErrInvalidInput, m.TurnAxis, len(in.Axes))
	}
	if !inRange(m.CaptureButton, len(in.Buttons)) {
		return Command{}, fmt.Errorf("%w: capture button %d, sample has %d buttons", ErrInvalidInput, m.CaptureButton, len(in.Buttons))
	}

	return Command{
		Velocity: Velocity{
			Linear:  in.Axes[m.ForwardAxis],
			Angular: in.Axes[m.TurnAxis],
		},
		Capture: in.Buttons[m.CaptureButton],
	}, nil
}

// Validate checks that indices are usable at all.
func (m Mapping) Validate() error {
	if m.ForwardAxis < 0 || m.TurnAxis < 0 || m.CaptureButton < 0 {
		return fmt.Errorf("mapping indices must be >= 0, got %+v", m)
	}
	return nil
}

func inRange(i, n int) bool {
	return i >= 0 && i < n
}

// Trigger keeps the latest velocity and a single pending capture slot.
// It is not safe for concurrent use; the control loop owns it. Requests is
// the exception and may be called from any goroutine.
type Trigger struct {
	mapFn    MapFunc
	velocity Velocity
	pending  bool
}

// NewTrigger creates a trigger using fn, or DefaultMapping if fn is nil.
func NewTrigger(fn MapFunc) *Trigger {
	if fn == nil {
		fn = DefaultMapping().Apply
	}
	return &Trigger{mapFn: fn}
}

// Handle applies one sample. On error the sample is skipped and neither the
// velocity nor the pending capture changes.
func (t *Trigger) Handle(in Input) error {
	cmd, err := t.mapFn(in)
	if err != nil {
		return err
	}
	t.velocity = cmd.Velocity
	if cmd.Capture {
		t.pending = true
	}
	return nil
}

// Requests reports whether in asks for a capture, without applying it.
// Invalid samples never request one.
func (t *Trigger) Requests(in Input) bool {
	cmd, err := t.mapFn(in)
	return err == nil && cmd.Capture
}

// Request marks a capture as pending without a sample.
func (t *Trigger) Request() {
	t.pending = true
}

// Velocity returns the command derived from the latest valid sample.
func (t *Trigger) Velocity() Velocity {
	return t.velocity
}

// Pending reports whether a capture has been requested since the last Clear.
func (t *Trigger) Pending() bool {
	return t.pending
}

// Clear drops the pending capture.
func (t *Trigger) Clear() {
	t.pending = false
}
