// Package robot holds the waypointer configuration and the SO-101 leader arm
// that can stand in for a gamepad.
package robot

// MotorName identifies a joint on the leader arm.
type MotorName string

// Joint names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all joints in servo ID order. When the arm is used as a
// controller, this is also the axis and button order.
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// AxisIndex returns the controller axis index for a joint, or -1.
func AxisIndex(name MotorName) int {
	for i, n := range AllMotors() {
		if n == name {
			return i
		}
	}
	return -1
}
