package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database Database `toml:"database"`
	Canvas   Canvas   `toml:"canvas"`
	Sync     Sync     `toml:"sync"`
	Logging  Logging  `toml:"logging"`
}

type Database struct {
	Path     string `toml:"path"`
	Document string `toml:"document"`
}

// Canvas tunes the layout and animation engine. Distances are in
// terminal cells, durations in milliseconds.
type Canvas struct {
	RootLabel        string  `toml:"root_label"`
	NodeWidth        int     `toml:"node_width"`
	NodeHeight       int     `toml:"node_height"`
	VerticalSpacing  int     `toml:"vertical_spacing"`
	GapMin           int     `toml:"gap_min"`
	GapMax           int     `toml:"gap_max"`
	ZoomMin          float64 `toml:"zoom_min"`
	ZoomMax          float64 `toml:"zoom_max"`
	WheelSensitivity float64 `toml:"wheel_sensitivity"`
	PanSpeed         float64 `toml:"pan_speed"`
	TweenMillis      int     `toml:"tween_millis"`
}

type Sync struct {
	Endpoint string `toml:"endpoint"`
	Password string `toml:"password"`
	Key      string `toml:"key"`
}

type Logging struct {
	Level   string  `toml:"level"`
	DevFile DevFile `toml:"dev_file"`
}

type DevFile struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default(dbPath string) Config {
	return Config{
		Database: Database{
			Path:     dbPath,
			Document: "default",
		},
		Canvas: Canvas{
			RootLabel:        "Tasks",
			NodeWidth:        24,
			NodeHeight:       3,
			VerticalSpacing:  1,
			GapMin:           8,
			GapMax:           40,
			ZoomMin:          0.25,
			ZoomMax:          2.5,
			WheelSensitivity: 0.12,
			PanSpeed:         60,
			TweenMillis:      280,
		},
		Logging: Logging{
			Level:   "info",
			DevFile: DevFile{Enabled: true},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Database.Document) == "" {
		return errors.New("database document is required")
	}

	cv := c.Canvas
	if cv.NodeWidth < 8 {
		return fmt.Errorf("canvas.node_width must be >= 8, got %d", cv.NodeWidth)
	}
	if cv.NodeHeight < 1 {
		return fmt.Errorf("canvas.node_height must be >= 1, got %d", cv.NodeHeight)
	}
	if cv.VerticalSpacing < 0 {
		return errors.New("canvas.vertical_spacing must be >= 0")
	}
	if cv.GapMin < 1 || cv.GapMax < cv.GapMin {
		return fmt.Errorf("canvas gap band [%d,%d] is invalid", cv.GapMin, cv.GapMax)
	}
	if cv.ZoomMin <= 0 || cv.ZoomMax < cv.ZoomMin {
		return fmt.Errorf("canvas zoom band [%v,%v] is invalid", cv.ZoomMin, cv.ZoomMax)
	}
	if cv.WheelSensitivity <= 0 {
		return errors.New("canvas.wheel_sensitivity must be > 0")
	}
	if cv.PanSpeed <= 0 {
		return errors.New("canvas.pan_speed must be > 0")
	}
	if cv.TweenMillis <= 0 {
		return errors.New("canvas.tween_millis must be > 0")
	}

	if endpoint := strings.TrimSpace(c.Sync.Endpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			return fmt.Errorf("sync.endpoint must be an http(s) url, got %q", endpoint)
		}
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
