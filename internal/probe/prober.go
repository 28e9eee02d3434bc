package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/ffmpeg"
)

var durationPattern = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})\.(\d{2})`)

type Prober struct {
	engine  domain.Engine
	builder *ffmpeg.CommandBuilder
}

func NewProber(engine domain.Engine, builder *ffmpeg.CommandBuilder) *Prober {
	return &Prober{engine: engine, builder: builder}
}

// Probe returns the source duration in seconds, or 0 when the engine log
// has no Duration line. Zero means unknown, never an empty clip.
func (p *Prober) Probe(ctx context.Context, locator string) (float64, error) {
	cmd := p.builder.Probe(locator)

	res, err := p.engine.Execute(ctx, cmd.Args)
	if err != nil {
		return 0, fmt.Errorf("%w: probe %s: %v", domain.ErrEngineException, locator, err)
	}

	// the null muxer may still exit non-zero after printing the header
	return ParseDuration(res.Log), nil
}

func ParseDuration(log string) float64 {
	m := durationPattern.FindStringSubmatch(log)
	if m == nil {
		return 0
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	centis, _ := strconv.Atoi(m[4])

	return float64(hours*3600+minutes*60+seconds) + float64(centis)/100
}
