package catalog

import (
	"sort"
	"strings"

	"github.com/eleven-am/goclip/internal/domain"
)

const (
	NeutralFilter = "eq=contrast=1.0"
	Identity      = "null"
)

var filterExpressions = map[string]string{
	"vintage":     "curves=vintage",
	"dramatic":    "eq=contrast=1.5:brightness=0.1:saturation=1.2",
	"bright":      "eq=brightness=0.2:contrast=1.1",
	"warm":        "colortemperature=4000",
	"cool":        "colortemperature=7000",
	"sepia":       "colorchannelmixer=.393:.769:.189:0:.349:.686:.168:0:.272:.534:.131",
	"black_white": "hue=s=0",
	"vivid":       "eq=saturation=1.5:contrast=1.2",
	"soft":        "gblur=sigma=1",
}

type dimensions struct {
	width  int
	height int
}

var frameSizes = map[domain.Resolution]map[domain.AspectRatio]dimensions{
	domain.Res720p: {
		domain.Aspect16x9: {1280, 720},
		domain.Aspect9x16: {720, 1280},
		domain.Aspect1x1:  {720, 720},
	},
	domain.Res1080p: {
		domain.Aspect16x9: {1920, 1080},
		domain.Aspect9x16: {1080, 1920},
		domain.Aspect1x1:  {1080, 1080},
	},
	domain.Res4K: {
		domain.Aspect16x9: {3840, 2160},
		domain.Aspect9x16: {2160, 3840},
		domain.Aspect1x1:  {2160, 2160},
	},
}

func FilterExpression(name string) string {
	if expr, ok := filterExpressions[strings.ToLower(strings.TrimSpace(name))]; ok {
		return expr
	}
	return NeutralFilter
}

func KnownFilter(name string) bool {
	_, ok := filterExpressions[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func Filters() []string {
	names := make([]string, 0, len(filterExpressions))
	for name := range filterExpressions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transpose maps clockwise degrees to a transpose chain. Only exact
// quarter turns are recognised; everything else passes frames through.
func Transpose(degrees int) string {
	switch degrees {
	case 90:
		return "transpose=1"
	case 180:
		return "transpose=2,transpose=2"
	case 270:
		return "transpose=2"
	default:
		return Identity
	}
}

func Dimensions(res domain.Resolution, aspect domain.AspectRatio) (int, int) {
	row, ok := frameSizes[res]
	if !ok {
		row = frameSizes[domain.Res1080p]
	}
	d, ok := row[aspect]
	if !ok {
		d = row[domain.Aspect16x9]
	}
	return d.width, d.height
}

func KnownResolution(res domain.Resolution) bool {
	_, ok := frameSizes[res]
	return ok
}

func KnownAspectRatio(aspect domain.AspectRatio) bool {
	_, ok := frameSizes[domain.Res1080p][aspect]
	return ok
}

func Bitrate(quality int) string {
	switch {
	case quality >= 80:
		return "5000k"
	case quality >= 60:
		return "3000k"
	case quality >= 40:
		return "2000k"
	case quality >= 20:
		return "1000k"
	default:
		return "500k"
	}
}
