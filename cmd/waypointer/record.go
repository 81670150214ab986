package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/waypointer/pkg/feed"
	"github.com/gwillem/waypointer/pkg/robot"
	"github.com/gwillem/waypointer/pkg/teleop"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

type RecordCommand struct {
	Config    string `long:"config" default:"waypointer.json" description:"Configuration file"`
	Hz        int    `long:"hz" description:"Override control loop frequency"`
	Store     string `long:"store" description:"Override waypoint store path"`
	ResumeIDs bool   `long:"resume-ids" description:"Continue waypoint ids after the records already in the store"`
	Headless  bool   `long:"headless" description:"Log to stderr instead of showing the live view"`
}

const (
	headerHeight = 4 // title + pose + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const (
	seriesLinear  = "linear"
	seriesAngular = "angular"
)

var seriesColors = map[string]string{
	seriesLinear:  "46", // green
	seriesAngular: "51", // cyan
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pendingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	savedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type recordModel struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	state    teleop.State
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
}

func (m *recordModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *recordModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *recordModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRecordModel(ctrl *teleop.Controller) recordModel {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-1, 1),
	)

	for _, name := range []string{seriesLinear, seriesAngular} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return recordModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m recordModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m recordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.state = teleop.State(msg)
		m.chart.PushDataSet(seriesLinear, m.state.Velocity.Linear)
		m.chart.PushDataSet(seriesAngular, m.state.Velocity.Angular)
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m recordModel) View() string {
	if m.quitting {
		return fmt.Sprintf("Recording stopped. %d waypoints saved.\n", m.state.Recorded)
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Waypointer"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")

	p := m.state.Pose
	sb.WriteString(fmt.Sprintf("pose x=%+.3f y=%+.3f yaw=%+.1f°   cmd linear=%+.3f angular=%+.3f\n",
		p.X, p.Y, p.Yaw()*180/math.Pi, m.state.Velocity.Linear, m.state.Velocity.Angular))

	status := savedStyle.Render(fmt.Sprintf("%d waypoints saved", m.state.Recorded))
	if m.state.Pending {
		status += "  " + pendingStyle.Render("capture pending")
	}
	sb.WriteString(status)
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{seriesLinear, seriesAngular} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func (c *RecordCommand) loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(c.Config)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "No configuration at %s, using defaults. Run 'waypointer setup' to create one.\n", c.Config)
		cfg, err = robot.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Store != "" {
		cfg.Store.Path = c.Store
	}
	if c.ResumeIDs {
		cfg.Store.ResumeIDs = true
	}
	return cfg, cfg.Validate()
}

func (c *RecordCommand) Execute(args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := waypoint.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	firstID := 0
	if cfg.Store.ResumeIDs {
		if firstID, err = store.Count(); err != nil {
			return fmt.Errorf("count stored waypoints: %w", err)
		}
	}

	velocity, err := feed.NewVelocitySender(cfg.Output.VelocityAddr)
	if err != nil {
		return err
	}
	defer velocity.Close()

	markers, err := feed.NewMarkerSender(cfg.Output.MarkerAddr)
	if err != nil {
		return err
	}
	defer markers.Close()

	ctrl, err := teleop.NewController(teleop.Config{
		Hz:       cfg.Hz,
		Map:      cfg.Mapping.Apply,
		Store:    store,
		Markers:  markers,
		Velocity: velocity,
		FirstID:  firstID,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	fmt.Printf("Recording to %s (%s)\n", cfg.Store.Path, storeKind(cfg.Store))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctrl.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return feed.RunPoseUDP(gctx, cfg.Pose.UDPAddr, cfg.Pose.ReadBuffer, ctrl, ctrl)
	})
	g.Go(func() error {
		return runControllerFeed(gctx, cfg.Controller, cfg.Hz, ctrl)
	})

	if c.Headless {
		stopLogs := make(chan struct{})
		logsDone := make(chan struct{})
		go func() {
			defer close(logsDone)
			forwardLogs(ctrl.Logs(), stopLogs, log.Println)
		}()

		err := g.Wait()
		close(stopLogs)
		<-logsDone
		return err
	}

	p := tea.NewProgram(initialRecordModel(ctrl), tea.WithAltScreen())
	go func() {
		<-gctx.Done()
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		log.Printf("Error running program: %v", err)
	}
	cancel()

	return g.Wait()
}

// forwardLogs prints log messages until stop is closed, then prints whatever
// is still queued.
func forwardLogs(logs <-chan string, stop <-chan struct{}, out func(...any)) {
	for {
		select {
		case msg := <-logs:
			out(msg)
		case <-stop:
			for {
				select {
				case msg := <-logs:
					out(msg)
				default:
					return
				}
			}
		}
	}
}

func runControllerFeed(ctx context.Context, cfg robot.ControllerConfig, hz int, ctrl *teleop.Controller) error {
	switch cfg.Source {
	case robot.SourceUDP:
		return feed.RunInputUDP(ctx, cfg.UDPAddr, ctrl, ctrl)
	case robot.SourceSerial:
		return feed.RunInputSerial(ctx, cfg.SerialPort, cfg.BaudRate, ctrl, ctrl)
	case robot.SourceArm:
		arm, err := robot.NewArm(cfg.Arm)
		if err != nil {
			return fmt.Errorf("create controller arm: %w", err)
		}
		defer arm.Close()

		if err := arm.Release(ctx); err != nil {
			ctrl.Logf("Warning: failed to release arm torque: %v", err)
		} else {
			ctrl.Logf("Controller arm: torque disabled (passive mode)")
		}
		return feed.PollInputs(ctx, arm, hz, ctrl, ctrl)
	default:
		return fmt.Errorf("unknown controller source %q", cfg.Source)
	}
}

func storeKind(cfg waypoint.StoreConfig) string {
	if cfg.Kind == "" {
		return waypoint.KindCSV
	}
	return cfg.Kind
}
