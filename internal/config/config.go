// Package config resolves viewer settings. Values come from Default, then
// an optional JSON file, then RDOC_* environment variables; command line
// flags are applied last by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/layout"
	"github.com/kk-code-lab/rdoc/internal/selection"
	"github.com/kk-code-lab/rdoc/internal/textdoc"
	"github.com/kk-code-lab/rdoc/internal/viewport"
)

// Config holds every tunable of the viewer.
type Config struct {
	// Fit is "width", "height" or "both".
	Fit string `json:"fit"`
	// Orientation is "vertical" or "horizontal".
	Orientation   string  `json:"orientation"`
	Spacing       float64 `json:"spacing"`
	SpacingTop    float64 `json:"spacing_top"`
	SpacingBottom float64 `json:"spacing_bottom"`
	AutoSpacing   bool    `json:"auto_spacing"`
	FitEachPage   bool    `json:"fit_each_page"`

	MinZoom   float64 `json:"min_zoom"`
	MidZoom   float64 `json:"mid_zoom"`
	MaxZoom   float64 `json:"max_zoom"`
	PageSnap  bool    `json:"page_snap"`
	PageFling bool    `json:"page_fling"`

	MergeLines     bool    `json:"merge_lines"`
	LineThreshold  float64 `json:"line_threshold"`
	VerticalExpand float64 `json:"vertical_expand"`

	LinesPerPage int     `json:"lines_per_page"`
	MinColumns   int     `json:"min_columns"`
	TabWidth     int     `json:"tab_width"`
	CellWidth    float64 `json:"cell_width"`
	CellHeight   float64 `json:"cell_height"`
	// MaxFileSize is a human readable size such as "64MB". Empty means no
	// limit.
	MaxFileSize string `json:"max_file_size"`

	MatchCase bool `json:"match_case"`
	WholeWord bool `json:"whole_word"`

	// HighlightDB is the sqlite file for saved highlights. Empty selects
	// the default location; "off" disables persistence.
	HighlightDB string `json:"highlight_db"`
	// EvictDistance releases pages further than this many pages from the
	// current one. Zero keeps every opened page.
	EvictDistance int `json:"evict_distance"`
}

// Default returns the built-in settings.
func Default() Config {
	vp := viewport.DefaultConfig()
	td := textdoc.DefaultOptions()
	return Config{
		Fit:            "width",
		Orientation:    "vertical",
		Spacing:        16,
		MinZoom:        vp.MinZoom,
		MidZoom:        vp.MidZoom,
		MaxZoom:        vp.MaxZoom,
		PageSnap:       true,
		MergeLines:     true,
		LineThreshold:  2,
		VerticalExpand: 0,
		LinesPerPage:   td.LinesPerPage,
		MinColumns:     td.MinColumns,
		TabWidth:       td.TabWidth,
		CellWidth:      td.CellWidth,
		CellHeight:     td.CellHeight,
		MaxFileSize:    "64MB",
		EvictDistance:  8,
	}
}

// Load reads a JSON file on top of Default and validates the result.
func Load(filename string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file '%s': %w", filename, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, fmt.Errorf("config file '%s' is empty", filename)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config (invalid JSON): %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envVars maps environment variables onto setters.
var envVars = []struct {
	name string
	set  func(c *Config, v string) error
}{
	{"RDOC_FIT", func(c *Config, v string) error { c.Fit = v; return nil }},
	{"RDOC_ORIENTATION", func(c *Config, v string) error { c.Orientation = v; return nil }},
	{"RDOC_SPACING", floatSetter(func(c *Config) *float64 { return &c.Spacing })},
	{"RDOC_AUTO_SPACING", boolSetter(func(c *Config) *bool { return &c.AutoSpacing })},
	{"RDOC_FIT_EACH_PAGE", boolSetter(func(c *Config) *bool { return &c.FitEachPage })},
	{"RDOC_MIN_ZOOM", floatSetter(func(c *Config) *float64 { return &c.MinZoom })},
	{"RDOC_MAX_ZOOM", floatSetter(func(c *Config) *float64 { return &c.MaxZoom })},
	{"RDOC_PAGE_SNAP", boolSetter(func(c *Config) *bool { return &c.PageSnap })},
	{"RDOC_LINES_PER_PAGE", intSetter(func(c *Config) *int { return &c.LinesPerPage })},
	{"RDOC_TAB_WIDTH", intSetter(func(c *Config) *int { return &c.TabWidth })},
	{"RDOC_MAX_FILE_SIZE", func(c *Config, v string) error { c.MaxFileSize = v; return nil }},
	{"RDOC_HIGHLIGHT_DB", func(c *Config, v string) error { c.HighlightDB = v; return nil }},
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", ev.name, v, err)
		}
	}
	return c.Validate()
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	c.Fit = strings.ToLower(strings.TrimSpace(c.Fit))
	if _, ok := layout.ParseFitPolicy(c.Fit); !ok {
		return fmt.Errorf("invalid fit '%s': must be 'width', 'height' or 'both'", c.Fit)
	}
	c.Orientation = strings.ToLower(strings.TrimSpace(c.Orientation))
	switch c.Orientation {
	case "", "vertical", "horizontal":
	default:
		return fmt.Errorf("invalid orientation '%s': must be 'vertical' or 'horizontal'", c.Orientation)
	}
	if c.Spacing < 0 || c.SpacingTop < 0 || c.SpacingBottom < 0 {
		return fmt.Errorf("spacing must not be negative")
	}
	if c.MinZoom <= 0 {
		return fmt.Errorf("min_zoom must be positive, got %v", c.MinZoom)
	}
	if c.MaxZoom < c.MinZoom {
		return fmt.Errorf("max_zoom %v is below min_zoom %v", c.MaxZoom, c.MinZoom)
	}
	if c.LineThreshold < 0 || c.LineThreshold > 10 {
		return fmt.Errorf("line_threshold must be within [0, 10], got %v", c.LineThreshold)
	}
	if c.VerticalExpand < 0 || c.VerticalExpand > 1 {
		return fmt.Errorf("vertical_expand must be within [0, 1], got %v", c.VerticalExpand)
	}
	if c.LinesPerPage < 0 || c.MinColumns < 0 || c.TabWidth < 0 || c.EvictDistance < 0 {
		return fmt.Errorf("page geometry values must not be negative")
	}
	if _, err := c.MaxFileSizeBytes(); err != nil {
		return err
	}
	return nil
}

// MaxFileSizeBytes parses MaxFileSize. Zero means no limit.
func (c Config) MaxFileSizeBytes() (int64, error) {
	s := strings.TrimSpace(c.MaxFileSize)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max_file_size '%s': %w", c.MaxFileSize, err)
	}
	return int64(n), nil
}

// Layout returns the layout engine settings.
func (c Config) Layout() layout.Config {
	fit, _ := layout.ParseFitPolicy(c.Fit)
	orientation := layout.Vertical
	if c.Orientation == "horizontal" {
		orientation = layout.Horizontal
	}
	return layout.Config{
		Fit:           fit,
		Orientation:   orientation,
		Spacing:       c.Spacing,
		SpacingTop:    c.SpacingTop,
		SpacingBottom: c.SpacingBottom,
		AutoSpacing:   c.AutoSpacing,
		FitEachPage:   c.FitEachPage,
	}
}

// Viewport returns the zoom and snapping settings.
func (c Config) Viewport() viewport.Config {
	return viewport.Config{
		MinZoom:   c.MinZoom,
		MidZoom:   c.MidZoom,
		MaxZoom:   c.MaxZoom,
		PageSnap:  c.PageSnap,
		PageFling: c.PageFling,
	}
}

// Selection returns the line merge settings.
func (c Config) Selection() selection.Config {
	return selection.Config{
		MergeLines:     c.MergeLines,
		LineThreshold:  c.LineThreshold,
		VerticalExpand: c.VerticalExpand,
	}
}

// TextDoc returns the pagination settings for plain-text files.
func (c Config) TextDoc() textdoc.Options {
	limit, _ := c.MaxFileSizeBytes()
	return textdoc.Options{
		LinesPerPage: c.LinesPerPage,
		MinColumns:   c.MinColumns,
		CellWidth:    c.CellWidth,
		CellHeight:   c.CellHeight,
		TabWidth:     c.TabWidth,
		MaxBytes:     limit,
	}
}

// FindFlags returns the default search flags.
func (c Config) FindFlags() document.FindFlags {
	var flags document.FindFlags
	if c.MatchCase {
		flags |= document.FindMatchCase
	}
	if c.WholeWord {
		flags |= document.FindWholeWord
	}
	return flags
}
