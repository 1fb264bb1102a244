package tui

import (
	"time"

	"github.com/hylla/grenverk/internal/layout"
)

// CanvasConfig tunes the layout, zoom, and animation behavior of the
// canvas. Distances are terminal cells, durations milliseconds.
type CanvasConfig struct {
	NodeWidth        int
	NodeHeight       int
	VerticalSpacing  int
	GapMin           int
	GapMax           int
	ZoomMin          float64
	ZoomMax          float64
	WheelSensitivity float64
	PanSpeed         float64
	TweenMillis      int
}

type Option func(*Model)

func DefaultCanvasConfig() CanvasConfig {
	return CanvasConfig{
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
	}
}

func WithCanvasConfig(cfg CanvasConfig) Option {
	return func(m *Model) {
		m.canvasCfg = cfg
		m.metrics = metricsFrom(cfg)
		m.view = NewViewport(cfg.ZoomMin, cfg.ZoomMax)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// metricsFrom maps canvas tuning onto layout metrics.
func metricsFrom(cfg CanvasConfig) layout.Metrics {
	return layout.Metrics{
		NodeWidth:       float64(cfg.NodeWidth),
		NodeHeight:      float64(cfg.NodeHeight),
		VerticalSpacing: float64(cfg.VerticalSpacing),
		Margin:          1,
		GapMin:          float64(cfg.GapMin),
		GapMax:          float64(cfg.GapMax),
	}
}
