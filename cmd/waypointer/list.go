package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/waypointer/pkg/robot"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

type ListCommand struct {
	Config string `long:"config" default:"waypointer.json" description:"Configuration file"`
	Store  string `long:"store" description:"Store path (overrides config)"`
	Kind   string `long:"kind" choice:"csv" choice:"sqlite" description:"Store kind (overrides config)"`
}

func (c *ListCommand) Execute(args []string) error {
	storeCfg, err := c.storeConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	wps, err := waypoint.Load(storeCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot read waypoints: %v\n", err)
		os.Exit(1)
	}

	if len(wps) == 0 {
		fmt.Println(dimStyle.Render("No waypoints recorded in " + storeCfg.Path))
		return nil
	}

	fmt.Println(renderWaypoints(wps))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d waypoints in %s", len(wps), storeCfg.Path)))
	return nil
}

// storeConfig reads the store section of the config file. Only a missing
// file falls back to defaults.
func (c *ListCommand) storeConfig() (waypoint.StoreConfig, error) {
	cfg, err := robot.LoadConfigFrom(c.Config)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = robot.DefaultConfig(), nil
	}
	if err != nil {
		return waypoint.StoreConfig{}, err
	}

	storeCfg := cfg.Store
	if c.Store != "" {
		storeCfg.Path = c.Store
	}
	if c.Kind != "" {
		storeCfg.Kind = c.Kind
	}
	return storeCfg, nil
}

func renderWaypoints(wps []waypoint.Waypoint) string {
	rows := make([][]string, 0, len(wps))
	for _, wp := range wps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", wp.ID),
			fmt.Sprintf("%.3f", wp.X),
			fmt.Sprintf("%.3f", wp.Y),
			fmt.Sprintf("%.3f", wp.Yaw),
			fmt.Sprintf("%.1f", wp.Yaw*180/math.Pi),
		})
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "X", "Y", "Yaw (rad)", "Yaw (°)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Render()
}
