package prefs

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// LineHeight names the spacing presets.
type LineHeight string

const (
	LineHeightCompact  LineHeight = "compact"
	LineHeightNormal   LineHeight = "normal"
	LineHeightSpacious LineHeight = "spacious"
)

// TextAlignment names the supported alignments.
type TextAlignment string

const (
	AlignLeft    TextAlignment = "left"
	AlignCenter  TextAlignment = "center"
	AlignJustify TextAlignment = "justify"
)

const (
	minFontSize     = 10
	maxFontSize     = 40
	defaultFontSize = 16
)

var lineHeightMultipliers = map[LineHeight]float64{
	LineHeightCompact:  1.2,
	LineHeightNormal:   1.5,
	LineHeightSpacious: 1.8,
}

// Preferences is the per-installation presentation configuration. It
// applies at render time only; nothing here is stored per document.
type Preferences struct {
	FontSize      int           `json:"fontSize"`
	LineHeight    LineHeight    `json:"lineHeight"`
	TextAlignment TextAlignment `json:"textAlignment"`
}

// Default returns the out-of-the-box preferences.
func Default() Preferences {
	return Preferences{
		FontSize:      defaultFontSize,
		LineHeight:    LineHeightNormal,
		TextAlignment: AlignLeft,
	}
}

// Normalized clamps the font size into its sane range and replaces
// unknown enum values with defaults.
func (p Preferences) Normalized() Preferences {
	if p.FontSize == 0 {
		p.FontSize = defaultFontSize
	}
	if p.FontSize < minFontSize {
		p.FontSize = minFontSize
	}
	if p.FontSize > maxFontSize {
		p.FontSize = maxFontSize
	}
	if _, ok := lineHeightMultipliers[p.LineHeight]; !ok {
		p.LineHeight = LineHeightNormal
	}
	switch p.TextAlignment {
	case AlignLeft, AlignCenter, AlignJustify:
	default:
		p.TextAlignment = AlignLeft
	}
	return p
}

// LineHeightPx derives the pixel line height from the font size and
// the preset multiplier.
func (p Preferences) LineHeightPx() int {
	n := p.Normalized()
	return int(math.Round(float64(n.FontSize) * lineHeightMultipliers[n.LineHeight]))
}

// Load reads preferences from path. A missing file yields defaults.
func Load(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), err
	}
	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("preferences file corrupt: %w", err)
	}
	return p.Normalized(), nil
}

// Save writes preferences to path, normalizing first.
func Save(path string, p Preferences) error {
	data, err := json.MarshalIndent(p.Normalized(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("preferences dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
