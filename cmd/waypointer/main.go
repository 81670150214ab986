package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup  SetupCommand  `command:"setup" description:"Choose a controller and store, calibrate a leader arm"`
	Record RecordCommand `command:"record" alias:"rec" description:"Drive the robot and record waypoints"`
	List   ListCommand   `command:"list" alias:"ls" description:"Print recorded waypoints"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Waypointer - teleoperate a mobile robot and record waypoints"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
