package waypoint

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVStore appends waypoints to a text file, one "x,y,yaw" line each.
// There is no header and no ID column.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store for path. The file is created on first append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Append opens the file in append mode, writes one line and closes it, so
// every record is on disk before Append returns.
func (s *CSVStore) Append(wp Waypoint) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStore, s.path, err)
	}

	line := fmt.Sprintf("%f,%f,%f\n", wp.X, wp.Y, wp.Yaw)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %w", ErrStore, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrStore, s.path, err)
	}
	return nil
}

// Count returns the number of non-empty lines. A missing file counts as 0.
func (s *CSVStore) Count() (int, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrStore, s.path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", ErrStore, s.path, err)
	}
	return n, nil
}

// Close is a no-op; the file is never held open.
func (s *CSVStore) Close() error {
	return nil
}

// LoadCSV reads a store file back. IDs follow line order.
func LoadCSV(path string) ([]Waypoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read waypoint file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var wps []Waypoint
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse waypoint file: %w", err)
		}

		var vals [3]float64
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, _ := r.FieldPos(i)
				return nil, fmt.Errorf("parse waypoint file: line %d: %w", line, err)
			}
			vals[i] = v
		}
		wps = append(wps, Waypoint{ID: len(wps), X: vals[0], Y: vals[1], Yaw: vals[2]})
	}
	return wps, nil
}
