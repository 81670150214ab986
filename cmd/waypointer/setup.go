package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/waypointer/pkg/robot"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Config string `long:"config" default:"waypointer.json" description:"Configuration file to write"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Waypointer Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := robot.LoadConfigFrom(c.Config)
	if err != nil {
		cfg = robot.DefaultConfig()
	}

	// Step 1: controller source
	chooseController(cfg)

	// Step 2: store and button mapping
	chooseStore(cfg)
	if cfg.Controller.Source != robot.SourceArm {
		chooseMapping(cfg)
	}

	// Step 3: calibrate leader arm if used
	if cfg.Controller.Source == robot.SourceArm {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating Controller Arm ━━━"))
		fmt.Println()
		calibrateArm(&cfg.Controller.Arm)
		chooseArmMapping(cfg)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration is not usable: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SaveTo(c.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", c.Config)
	fmt.Println()
	fmt.Println("Start recording with: " + headerStyle.Render("waypointer record"))

	return nil
}

func runForm(groups ...*huh.Group) {
	if err := huh.NewForm(groups...).Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

func chooseController(cfg *robot.Config) {
	runForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Where does controller input come from?").
			Options(
				huh.NewOption("UDP joystick bridge", robot.SourceUDP),
				huh.NewOption("Serial gamepad adapter", robot.SourceSerial),
				huh.NewOption("SO-101 leader arm", robot.SourceArm),
			).
			Value(&cfg.Controller.Source),
	))

	switch cfg.Controller.Source {
	case robot.SourceUDP:
		runForm(huh.NewGroup(
			huh.NewInput().
				Title("Controller UDP listen address").
				Value(&cfg.Controller.UDPAddr),
		))
	case robot.SourceSerial:
		cfg.Controller.SerialPort = choosePort("Which port is the gamepad adapter on?", cfg.Controller.SerialPort)
		baud := strconv.Itoa(cfg.Controller.BaudRate)
		runForm(huh.NewGroup(
			huh.NewInput().
				Title("Baud rate").
				Value(&baud).
				Validate(validateInt),
		))
		cfg.Controller.BaudRate, _ = strconv.Atoi(baud)
	case robot.SourceArm:
		arms := findArms()
		if len(arms) == 0 {
			fmt.Println("No SO-101 arms found.")
			fmt.Println("Make sure the arm is connected and powered on.")
			os.Exit(1)
		}
		port := arms[0]
		if len(arms) > 1 {
			var options []huh.Option[string]
			for _, a := range arms {
				options = append(options, huh.NewOption(a, a))
			}
			runForm(huh.NewGroup(
				huh.NewSelect[string]().
					Title("Which arm should act as the controller?").
					Options(options...).
					Value(&port),
			))
		}
		cfg.Controller.Arm.Port = port
	}
}

func choosePort(title, current string) string {
	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		port := current
		runForm(huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description("No ports detected, enter a device path").
				Value(&port),
		))
		return port
	}

	var options []huh.Option[string]
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		options = append(options, huh.NewOption(p, p))
	}
	port := current
	runForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(options...).
			Value(&port),
	))
	return port
}

func chooseStore(cfg *robot.Config) {
	runForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Waypoint store").
			Options(
				huh.NewOption("CSV file (x,y,yaw per line)", waypoint.KindCSV),
				huh.NewOption("SQLite database", waypoint.KindSQLite),
			).
			Value(&cfg.Store.Kind),
		huh.NewInput().
			Title("Store path").
			Value(&cfg.Store.Path),
		huh.NewConfirm().
			Title("Continue ids after existing waypoints?").
			Description("Off: ids restart at 0 every run").
			Value(&cfg.Store.ResumeIDs),
	))
}

func chooseMapping(cfg *robot.Config) {
	forward := strconv.Itoa(cfg.Mapping.ForwardAxis)
	turn := strconv.Itoa(cfg.Mapping.TurnAxis)
	capture := strconv.Itoa(cfg.Mapping.CaptureButton)

	runForm(huh.NewGroup(
		huh.NewInput().Title("Forward/back axis index").Value(&forward).Validate(validateInt),
		huh.NewInput().Title("Turn axis index").Value(&turn).Validate(validateInt),
		huh.NewInput().Title("Capture button index").Value(&capture).Validate(validateInt),
	))

	cfg.Mapping.ForwardAxis, _ = strconv.Atoi(forward)
	cfg.Mapping.TurnAxis, _ = strconv.Atoi(turn)
	cfg.Mapping.CaptureButton, _ = strconv.Atoi(capture)
}

func chooseArmMapping(cfg *robot.Config) {
	var options []huh.Option[robot.MotorName]
	for _, name := range robot.AllMotors() {
		options = append(options, huh.NewOption(string(name), name))
	}

	forward, turn, capture := robot.ShoulderLift, robot.ShoulderPan, robot.Gripper
	runForm(huh.NewGroup(
		huh.NewSelect[robot.MotorName]().Title("Joint that drives forward/back").Options(options...).Value(&forward),
		huh.NewSelect[robot.MotorName]().Title("Joint that turns").Options(options...).Value(&turn),
		huh.NewSelect[robot.MotorName]().Title("Joint that captures when pushed to its end").Options(options...).Value(&capture),
	))

	cfg.Mapping.ForwardAxis = robot.AxisIndex(forward)
	cfg.Mapping.TurnAxis = robot.AxisIndex(turn)
	cfg.Mapping.CaptureButton = robot.AxisIndex(capture)
}

func validateInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if v < 0 {
		return fmt.Errorf("must be >= 0")
	}
	return nil
}

func findArms() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []string
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		bus, _, err := connectToArm(port)
		if err != nil {
			continue
		}
		bus.Close()
		fmt.Printf("  Found SO-101 arm on %s\n", port)
		arms = append(arms, port)
	}
	return arms
}

func isSOArm(servos []feetech.FoundServo) bool {
	if len(servos) != 6 {
		return false
	}
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= 6; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, 6)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isSOArm(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("not an SO-101 arm (expected 6 servos with IDs 1-6)")
	}

	return bus, servos, nil
}

func calibrateArm(armConfig *robot.ArmConfig) {
	fmt.Printf("Calibrating controller arm on %s\n", armConfig.Port)
	fmt.Println()

	bus, servos, err := connectToArm(armConfig.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to arm: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so the operator can move the arm freely
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	motors := robot.AllMotors()

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("The ends of each range become full stick deflection.")
	fmt.Println()

	curPositions := make(map[robot.MotorName]int)
	minPositions := make(map[robot.MotorName]int)
	maxPositions := make(map[robot.MotorName]int)
	for i, motorName := range motors {
		pos, _ := servoMap[i+1].Position(ctx)
		curPositions[motorName] = pos
		minPositions[motorName] = pos
		maxPositions[motorName] = pos
	}

	model := newCalibrationModel(motors, servoMap, curPositions, minPositions, maxPositions)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}

	cm := finalModel.(calibrationModel)
	calibration := make(robot.Calibration)
	for i, motorName := range motors {
		calibration[motorName] = robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.minPositions[motorName],
			RangeMax: cm.maxPositions[motorName],
		}
	}

	armConfig.Calibration = calibration
	if armConfig.ButtonThreshold == 0 {
		armConfig.ButtonThreshold = robot.DefaultButtonThreshold
	}
	fmt.Println()
	fmt.Println("Controller arm calibrated.")
}

// Calibration TUI model
type calibrationModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) calibrationModel {
	return calibrationModel{
		motors:       motors,
		servoMap:     servoMap,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, motorName := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[motorName] = pos
			if pos < m.minPositions[motorName] {
				m.minPositions[motorName] = pos
			}
			if pos > m.maxPositions[motorName] {
				m.maxPositions[motorName] = pos
			}
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableAxisStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	for _, motorName := range m.motors {
		cal := robot.MotorCalibration{
			RangeMin: m.minPositions[motorName],
			RangeMax: m.maxPositions[motorName],
		}
		rows = append(rows, []string{
			string(motorName),
			fmt.Sprintf("%d", m.curPositions[motorName]),
			fmt.Sprintf("%d", cal.RangeMin),
			fmt.Sprintf("%d", cal.RangeMax),
			fmt.Sprintf("%+.2f", cal.Axis(m.curPositions[motorName])),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Axis").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 4:
				return tableAxisStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
