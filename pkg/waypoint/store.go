package waypoint

import "fmt"

// Store kinds.
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// StoreConfig selects and locates the waypoint store.
type StoreConfig struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	// ResumeIDs starts the ID counter at the number of records already in
	// the store instead of 0.
	ResumeIDs bool `json:"resume_ids"`
}

// Open returns the store described by cfg. An empty kind means CSV.
func Open(cfg StoreConfig) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path must be set")
	}
	switch cfg.Kind {
	case "", KindCSV:
		return NewCSVStore(cfg.Path), nil
	case KindSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// Load reads back every waypoint in the store described by cfg.
func Load(cfg StoreConfig) ([]Waypoint, error) {
	switch cfg.Kind {
	case "", KindCSV:
		return LoadCSV(cfg.Path)
	case KindSQLite:
		return LoadSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
