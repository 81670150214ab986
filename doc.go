// Package waypointer records waypoints while you teleoperate a mobile robot.
//
// A hand controller drives the base; pressing the capture button stores the
// robot's current pose as an x,y,yaw waypoint and sends an arrow marker so
// the operator can see it on the map.
//
// # Installation
//
//	go install github.com/gwillem/waypointer/cmd/waypointer@latest
//
// # Usage
//
// Pick a controller and a waypoint store:
//
//	waypointer setup
//
// Then drive and record:
//
//	waypointer record
//
// Recorded waypoints can be printed with:
//
//	waypointer list
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/waypointer: CLI with setup, record and list commands
//   - pkg/pose: Pose value and latest-pose tracker
//   - pkg/joy: Controller input to velocity and capture requests
//   - pkg/waypoint: Recorder, markers, CSV and SQLite stores
//   - pkg/teleop: Fixed-rate control loop
//   - pkg/feed: UDP, serial and leader-arm feeds; UDP outputs
//   - pkg/robot: Configuration and the SO-101 leader arm
package waypointer
