package engine

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type CapabilityKind string

const (
	KindFilter  CapabilityKind = "filter"
	KindEncoder CapabilityKind = "encoder"
)

// Capability is one engine component an edit operation depends on.
type Capability struct {
	Name      string         `json:"name"`
	Kind      CapabilityKind `json:"kind"`
	Feature   string         `json:"feature"`
	Available bool           `json:"available"`
}

var required = []Capability{
	{Name: "setpts", Kind: KindFilter, Feature: "speed"},
	{Name: "atempo", Kind: KindFilter, Feature: "speed"},
	{Name: "transpose", Kind: KindFilter, Feature: "rotate"},
	{Name: "drawtext", Kind: KindFilter, Feature: "text"},
	{Name: "volume", Kind: KindFilter, Feature: "audio"},
	{Name: "amix", Kind: KindFilter, Feature: "audio"},
	{Name: "crop", Kind: KindFilter, Feature: "crop"},
	{Name: "scale", Kind: KindFilter, Feature: "export"},
	{Name: "concat", Kind: KindFilter, Feature: "concatenate"},
	{Name: "curves", Kind: KindFilter, Feature: "filter vintage"},
	{Name: "eq", Kind: KindFilter, Feature: "filter dramatic/bright/vivid"},
	{Name: "colortemperature", Kind: KindFilter, Feature: "filter warm/cool"},
	{Name: "colorchannelmixer", Kind: KindFilter, Feature: "filter sepia"},
	{Name: "hue", Kind: KindFilter, Feature: "filter black_white"},
	{Name: "gblur", Kind: KindFilter, Feature: "filter soft"},
	{Name: "libx264", Kind: KindEncoder, Feature: "export"},
	{Name: "aac", Kind: KindEncoder, Feature: "export"},
}

type Report struct {
	Binary       string       `json:"binary"`
	Capabilities []Capability `json:"capabilities"`
}

func (r Report) Missing() []Capability {
	var out []Capability
	for _, c := range r.Capabilities {
		if !c.Available {
			out = append(out, c)
		}
	}
	return out
}

func (r Report) OK() bool {
	return len(r.Missing()) == 0
}

// Detect asks the engine binary which filters and encoders it was built
// with and checks them against what the edit operations need.
func Detect(ctx context.Context, binary string) (Report, error) {
	if binary == "" {
		binary = DefaultBinary
	}

	filters, err := listComponents(ctx, binary, "-filters")
	if err != nil {
		return Report{}, err
	}

	encoders, err := listComponents(ctx, binary, "-encoders")
	if err != nil {
		return Report{}, err
	}

	report := Report{Binary: binary}
	for _, c := range required {
		switch c.Kind {
		case KindFilter:
			c.Available = filters[c.Name]
		case KindEncoder:
			c.Available = encoders[c.Name]
		}
		report.Capabilities = append(report.Capabilities, c)
	}

	return report, nil
}

func listComponents(ctx context.Context, binary, flag string) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", flag)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", binary, flag, err)
	}

	result := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !isFlagColumn(fields[0]) {
			continue
		}
		result[fields[1]] = true
	}

	return result, nil
}

// isFlagColumn matches the leading capability column of ffmpeg listings,
// e.g. "T.C" for filters or "V....D" for encoders.
func isFlagColumn(s string) bool {
	if len(s) < 3 || len(s) > 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(".TSCVAFXBDN|", r) {
			return false
		}
	}
	return true
}
