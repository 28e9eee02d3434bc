// Package script reads YAML edit scripts: a source video, an ordered list
// of edit operations and optional export settings.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eleven-am/goclip/internal/domain"
)

type Script struct {
	Source     string                 `yaml:"source"`
	Operations []domain.Request       `yaml:"operations"`
	Export     *domain.ExportSettings `yaml:"export,omitempty"`
	Merge      *bool                  `yaml:"merge,omitempty"`
}

// Load reads a script from disk. Relative source and audio paths are
// resolved against the script's directory.
func Load(path string) (Script, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}

	s, err := Parse(contents)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	s.Source = resolve(base, s.Source)
	for i := range s.Operations {
		if s.Operations[i].Kind == domain.OpAudio {
			s.Operations[i].AudioLocator = resolve(base, s.Operations[i].AudioLocator)
		}
	}
	return s, nil
}

func Parse(contents []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(contents, &s); err != nil {
		return Script{}, fmt.Errorf("unmarshal script: %w", err)
	}
	for i := range s.Operations {
		s.Operations[i] = s.Operations[i].WithDefaults()
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

func (s Script) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return domain.Invalid("script has no source")
	}
	for i, op := range s.Operations {
		if !op.Kind.Editing() {
			return domain.Invalid("operation %d: %q is not an edit operation", i+1, op.Kind)
		}
		if err := op.Validate(); err != nil {
			return fmt.Errorf("operation %d: %w", i+1, err)
		}
	}
	return nil
}

// MergeOr returns the script's merge choice, or fallback when unset.
func (s Script) MergeOr(fallback bool) bool {
	if s.Merge == nil {
		return fallback
	}
	return *s.Merge
}

// Describe renders a request as a short step title.
func Describe(req domain.Request) string {
	switch req.Kind {
	case domain.OpCut:
		return fmt.Sprintf("Cut %s-%s", seconds(req.Start), seconds(req.End))
	case domain.OpSplit:
		return "Split at " + seconds(req.At)
	case domain.OpSpeed:
		return "Speed " + strconv.FormatFloat(req.Multiplier, 'f', -1, 64) + "x"
	case domain.OpRotate:
		return fmt.Sprintf("Rotate %d°", req.Degrees)
	case domain.OpFilter:
		return "Filter " + req.Filter
	case domain.OpText:
		return fmt.Sprintf("Text %q", req.Text)
	case domain.OpAudio:
		return "Audio " + filepath.Base(req.AudioLocator)
	case domain.OpCrop:
		return fmt.Sprintf("Crop %dx%d+%d+%d", req.Width, req.Height, req.X, req.Y)
	}
	return string(req.Kind)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(base, p)
}
