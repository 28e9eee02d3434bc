package domain

import (
	"regexp"
	"strings"
)

type OpKind string

const (
	OpCut         OpKind = "cut"
	OpSplit       OpKind = "split"
	OpSpeed       OpKind = "speed"
	OpRotate      OpKind = "rotate"
	OpFilter      OpKind = "filter"
	OpText        OpKind = "text"
	OpAudio       OpKind = "audio"
	OpCrop        OpKind = "crop"
	OpExport      OpKind = "export"
	OpConcatenate OpKind = "concatenate"
	OpProbe       OpKind = "probe"
)

// Request carries one user-intent edit. Only the fields relevant to Kind
// are read.
type Request struct {
	Kind OpKind `json:"kind" yaml:"kind"`

	Start float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End   float64 `json:"end,omitempty" yaml:"end,omitempty"`
	At    float64 `json:"at,omitempty" yaml:"at,omitempty"`

	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Degrees    int     `json:"degrees,omitempty" yaml:"degrees,omitempty"`
	Filter     string  `json:"filter,omitempty" yaml:"filter,omitempty"`

	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	FontSize int    `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	X        int    `json:"x,omitempty" yaml:"x,omitempty"`
	Y        int    `json:"y,omitempty" yaml:"y,omitempty"`

	AudioLocator string  `json:"audio,omitempty" yaml:"audio,omitempty"`
	Volume       float64 `json:"volume,omitempty" yaml:"volume,omitempty"`

	Width  int `json:"width,omitempty" yaml:"width,omitempty"`
	Height int `json:"height,omitempty" yaml:"height,omitempty"`

	Settings *ExportSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

var colorPattern = regexp.MustCompile(`^([A-Za-z]+|(#|0x)[0-9A-Fa-f]{6}([0-9A-Fa-f]{2})?)(@[0-9.]+)?$`)

func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

func (r Request) Validate() error {
	switch r.Kind {
	case OpCut:
		if r.Start < 0 || r.End <= r.Start {
			return Invalid("cut window [%g,%g) is empty or negative", r.Start, r.End)
		}
	case OpSplit:
		if r.At <= 0 {
			return Invalid("split time %g must be positive", r.At)
		}
	case OpSpeed:
		if r.Multiplier <= 0 {
			return Invalid("speed multiplier %g must be positive", r.Multiplier)
		}
	case OpRotate, OpFilter, OpProbe, OpExport:
	case OpText:
		if strings.TrimSpace(r.Text) == "" {
			return Invalid("overlay text is empty")
		}
		if r.FontSize <= 0 {
			return Invalid("font size %d must be positive", r.FontSize)
		}
		if !ValidColor(r.Color) {
			return Invalid("color %q is not a name or hex value", r.Color)
		}
		if r.X < 0 || r.Y < 0 {
			return Invalid("overlay position (%d,%d) is negative", r.X, r.Y)
		}
	case OpAudio:
		if strings.TrimSpace(r.AudioLocator) == "" {
			return Invalid("audio locator is empty")
		}
		if r.Volume < 0 {
			return Invalid("volume %g is negative", r.Volume)
		}
	case OpCrop:
		if r.Width <= 0 || r.Height <= 0 {
			return Invalid("crop size %dx%d must be positive", r.Width, r.Height)
		}
		if r.X < 0 || r.Y < 0 {
			return Invalid("crop offset (%d,%d) is negative", r.X, r.Y)
		}
	case OpConcatenate:
	default:
		return Invalid("unknown operation %q", r.Kind)
	}
	return nil
}

// DefaultRotation is the clockwise turn a rotate request gets when it
// names no angle.
const DefaultRotation = 90

// WithDefaults fills fields a request may leave out.
func (r Request) WithDefaults() Request {
	if r.Kind == OpRotate && r.Degrees == 0 {
		r.Degrees = DefaultRotation
	}
	return r
}

// Editing reports whether the kind transforms the selected clip, as
// opposed to export, concatenate and probe which act on whole files.
func (k OpKind) Editing() bool {
	switch k {
	case OpCut, OpSplit, OpSpeed, OpRotate, OpFilter, OpText, OpAudio, OpCrop:
		return true
	}
	return false
}
