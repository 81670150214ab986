// Package feed connects the control loop to the outside world: inbound pose
// and controller feeds, and outbound velocity and marker sinks.
package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/pose"
)

// ParsePose parses "x,y,z,qx,qy,qz,qw" or the planar short form
// "x,y,qz,qw".
func ParsePose(b []byte) (pose.Pose, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return pose.Pose{}, errors.New("empty payload")
	}

	parts := strings.Split(s, ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := parseF64(p)
		if err != nil {
			return pose.Pose{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i] = v
	}

	switch len(vals) {
	case 7:
		return pose.Pose{
			X: vals[0], Y: vals[1], Z: vals[2],
			Orientation: quat.Number{Imag: vals[3], Jmag: vals[4], Kmag: vals[5], Real: vals[6]},
		}, nil
	case 4:
		return pose.Pose{
			X: vals[0], Y: vals[1],
			Orientation: quat.Number{Kmag: vals[2], Real: vals[3]},
		}, nil
	default:
		return pose.Pose{}, fmt.Errorf("expected 4 or 7 fields, got %d", len(vals))
	}
}

// ParseInput parses "a0,a1,...;b0,b1,..." where axes are floats and buttons
// are 0/1 (or true/false). Either list may be empty.
func ParseInput(b []byte) (joy.Input, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return joy.Input{}, errors.New("empty payload")
	}

	axesPart, buttonsPart, ok := strings.Cut(s, ";")
	if !ok {
		return joy.Input{}, errors.New("missing ';' between axes and buttons")
	}

	var in joy.Input
	for i, field := range splitList(axesPart) {
		v, err := parseF64(field)
		if err != nil {
			return joy.Input{}, fmt.Errorf("axis %d: %w", i, err)
		}
		in.Axes = append(in.Axes, v)
	}
	for i, field := range splitList(buttonsPart) {
		v, err := strconv.ParseBool(strings.TrimSpace(field))
		if err != nil {
			return joy.Input{}, fmt.Errorf("button %d: %w", i, err)
		}
		in.Buttons = append(in.Buttons, v)
	}
	return in, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseF64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
