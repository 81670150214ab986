package robot

import "fmt"

// MotorCalibration is the observed raw range of one joint.
type MotorCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`
}

// Calibration holds calibration data for all joints, keyed by name.
type Calibration map[MotorName]MotorCalibration

// Axis maps a raw servo position onto a controller axis in [-1, 1]. The
// range midpoint is 0; positions outside the calibrated range are clamped.
func (c MotorCalibration) Axis(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	v := (float64(raw-c.RangeMin)/rangeSize)*2 - 1
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}

// MotorIDs returns servo IDs in AllMotors order.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID. Only known
// joints are considered.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok && mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// Check rejects joint names the arm does not have and servo IDs used by more
// than one joint.
func (c Calibration) Check() error {
	seen := make(map[int]MotorName, len(c))
	for name, mc := range c {
		if AxisIndex(name) < 0 {
			return fmt.Errorf("unknown joint %q in calibration", name)
		}
		if other, dup := seen[mc.ID]; dup {
			return fmt.Errorf("servo id %d used by both %s and %s", mc.ID, other, name)
		}
		seen[mc.ID] = name
	}
	return nil
}

// Complete reports whether every joint has a usable range.
func (c Calibration) Complete() bool {
	for _, name := range AllMotors() {
		mc, ok := c[name]
		if !ok || mc.RangeMax <= mc.RangeMin {
			return false
		}
	}
	return true
}
