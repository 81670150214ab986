package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/waypointer/pkg/joy"
)

// DefaultButtonThreshold is the axis value above which a joint reads as a
// pressed button.
const DefaultButtonThreshold = 0.8

// Arm is an SO-101 leader arm read as a hand controller. Torque stays off so
// the operator can move it freely.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	threshold   float64
}

// NewArm opens the servo bus on port.
func NewArm(cfg ArmConfig) (*Arm, error) {
	if !cfg.Calibration.Complete() {
		return nil, fmt.Errorf("arm on %s is not calibrated", cfg.Port)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	threshold := cfg.ButtonThreshold
	if threshold <= 0 {
		threshold = DefaultButtonThreshold
	}

	return &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cfg.Calibration.MotorIDs()...),
		calibration: cfg.Calibration,
		threshold:   threshold,
	}, nil
}

// Close closes the bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Release disables torque on all servos.
func (a *Arm) Release(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadInput samples every joint and returns it as a controller sample:
// one axis per joint in AllMotors order, and one button per joint that reads
// pressed when its axis is above the threshold.
func (a *Arm) ReadInput(ctx context.Context) (joy.Input, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return joy.Input{}, fmt.Errorf("read positions: %w", err)
	}

	return inputFromPositions(a.calibration, raw, a.threshold), nil
}

// inputFromPositions turns raw servo positions into a controller sample.
// Positions from servos that are not a calibrated joint are ignored.
func inputFromPositions(cal Calibration, raw feetech.PositionMap, threshold float64) joy.Input {
	motors := AllMotors()
	in := joy.Input{
		Axes:    make([]float64, len(motors)),
		Buttons: make([]bool, len(motors)),
	}
	for id, pos := range raw {
		name, mc, ok := cal.ByID(id)
		if !ok {
			continue
		}
		i := AxisIndex(name)
		if i < 0 {
			continue
		}
		in.Axes[i] = mc.Axis(pos)
		in.Buttons[i] = in.Axes[i] > threshold
	}
	return in
}
