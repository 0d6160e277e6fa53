package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/nocap/internal/landmark"
	"github.com/banshee-data/nocap/internal/skeleton"
	"github.com/banshee-data/nocap/internal/timeutil"
	"github.com/banshee-data/nocap/internal/units"
)

// DefaultConfigPath is the path to the canonical export defaults file.
const DefaultConfigPath = "config/export.defaults.json"

// ExportConfig holds the capture and export settings. Every field is
// optional; the Get* methods fall back to built-in defaults.
type ExportConfig struct {
	// Skeleton
	Profile       *string  `json:"profile,omitempty"`
	RotationOrder *string  `json:"rotation_order,omitempty"`
	PositionScale *float64 `json:"position_scale,omitempty"`
	// PositionUnits sets the scale from a unit name when position_scale is
	// not given.
	PositionUnits *string `json:"position_units,omitempty"`

	// Capture
	FrameRate       *float64 `json:"frame_rate,omitempty"`
	LandmarkCount   *int     `json:"landmark_count,omitempty"`
	CaptureInterval *string  `json:"capture_interval,omitempty"` // duration string like "33ms"

	// Storage
	ArchiveDB *string `json:"archive_db,omitempty"`
	InboxDir  *string `json:"inbox_dir,omitempty"`
	OutboxDir *string `json:"outbox_dir,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyExportConfig returns an ExportConfig with all fields unset.
func EmptyExportConfig() *ExportConfig {
	return &ExportConfig{}
}

// DefaultExportConfig returns a config with every field set to its default.
func DefaultExportConfig() *ExportConfig {
	c := EmptyExportConfig()
	return &ExportConfig{
		Profile:         ptrString(c.GetProfile()),
		RotationOrder:   ptrString(""),
		PositionScale:   ptrFloat64(c.GetPositionScale()),
		FrameRate:       ptrFloat64(c.GetFrameRate()),
		LandmarkCount:   ptrInt(c.GetLandmarkCount()),
		CaptureInterval: ptrString(c.GetCaptureInterval().String()),
		ArchiveDB:       ptrString(c.GetArchiveDB()),
		InboxDir:        ptrString(c.GetInboxDir()),
		OutboxDir:       ptrString(c.GetOutboxDir()),
	}
}

// LoadExportConfig loads an ExportConfig from a JSON file. The file must
// have a .json extension and be at most 1MB. Omitted fields keep their
// defaults.
func LoadExportConfig(path string) (*ExportConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyExportConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *ExportConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadExportConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the set values are usable.
func (c *ExportConfig) Validate() error {
	if c.Profile != nil && *c.Profile != "" {
		if _, err := skeleton.Lookup(*c.Profile); err != nil {
			return err
		}
	}
	if c.RotationOrder != nil && *c.RotationOrder != "" {
		if _, err := skeleton.ParseOrder(*c.RotationOrder); err != nil {
			return err
		}
	}
	if c.PositionScale != nil {
		if v := *c.PositionScale; v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("position_scale must be positive, got %v", v)
		}
	}
	if c.PositionUnits != nil && *c.PositionUnits != "" && !units.IsValid(*c.PositionUnits) {
		return fmt.Errorf("invalid position_units '%s'; must be one of: %s", *c.PositionUnits, units.GetValidUnitsString())
	}
	if c.FrameRate != nil {
		if v := *c.FrameRate; v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("frame_rate must be positive, got %v", v)
		}
	}
	if c.LandmarkCount != nil && *c.LandmarkCount <= 0 {
		return fmt.Errorf("landmark_count must be positive, got %d", *c.LandmarkCount)
	}
	if c.CaptureInterval != nil && *c.CaptureInterval != "" {
		d, err := time.ParseDuration(*c.CaptureInterval)
		if err != nil {
			return fmt.Errorf("invalid capture_interval '%s': %w", *c.CaptureInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("capture_interval must be positive, got %s", d)
		}
	}
	return nil
}

// GetProfile returns the skeleton profile name or the default.
func (c *ExportConfig) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return skeleton.DefaultProfileName
	}
	return *c.Profile
}

// GetPositionScale returns position_scale, else the scale implied by
// position_units, else the default.
func (c *ExportConfig) GetPositionScale() float64 {
	if c.PositionScale != nil {
		return *c.PositionScale
	}
	if c.PositionUnits != nil && *c.PositionUnits != "" {
		if s, err := units.ScaleFromMeters(*c.PositionUnits); err == nil {
			return s
		}
	}
	return skeleton.DefaultPositionScale
}

// GetFrameRate returns the frame_rate value or the default.
func (c *ExportConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 30
	}
	return *c.FrameRate
}

// GetLandmarkCount returns the landmark_count value or the default.
func (c *ExportConfig) GetLandmarkCount() int {
	if c.LandmarkCount == nil {
		return landmark.DefaultCount
	}
	return *c.LandmarkCount
}

// GetCaptureInterval parses and returns CaptureInterval. The default is one
// frame period at the configured frame rate.
func (c *ExportConfig) GetCaptureInterval() time.Duration {
	fallback := timeutil.FramePeriod(c.GetFrameRate())
	if c.CaptureInterval == nil || *c.CaptureInterval == "" {
		return fallback
	}
	d, err := time.ParseDuration(*c.CaptureInterval)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetArchiveDB returns the archive database path or the default.
func (c *ExportConfig) GetArchiveDB() string {
	if c.ArchiveDB == nil || *c.ArchiveDB == "" {
		return "nocap.db"
	}
	return *c.ArchiveDB
}

// GetInboxDir returns the watched inbox directory or the default.
func (c *ExportConfig) GetInboxDir() string {
	if c.InboxDir == nil || *c.InboxDir == "" {
		return "inbox"
	}
	return *c.InboxDir
}

// GetOutboxDir returns the converter output directory or the default.
func (c *ExportConfig) GetOutboxDir() string {
	if c.OutboxDir == nil || *c.OutboxDir == "" {
		return "outbox"
	}
	return *c.OutboxDir
}

// ApplyTo returns p with the configured rotation order and position scale.
func (c *ExportConfig) ApplyTo(p skeleton.Profile) (skeleton.Profile, error) {
	if c.RotationOrder != nil && *c.RotationOrder != "" {
		order, err := skeleton.ParseOrder(*c.RotationOrder)
		if err != nil {
			return p, err
		}
		p.RotationOrder = order
	}
	if c.PositionScale != nil || c.PositionUnits != nil {
		p.PositionScale = c.GetPositionScale()
	}
	return p, nil
}

// Hierarchy looks up the configured profile, applies the overrides and
// builds the joint tree. A landmark_count too small for the tree is a
// *skeleton.ConfigurationError.
func (c *ExportConfig) Hierarchy() (*skeleton.Hierarchy, error) {
	p, err := skeleton.Lookup(c.GetProfile())
	if err != nil {
		return nil, err
	}
	if p, err = c.ApplyTo(p); err != nil {
		return nil, err
	}
	h, err := skeleton.New(p)
	if err != nil {
		return nil, err
	}
	if n := c.GetLandmarkCount(); n < h.RequiredLandmarks() {
		return nil, &skeleton.ConfigurationError{
			Profile: h.Name(),
			Reason:  fmt.Sprintf("landmark_count %d is below the %d landmarks the skeleton requires", n, h.RequiredLandmarks()),
		}
	}
	return h, nil
}
