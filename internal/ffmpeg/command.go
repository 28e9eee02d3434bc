package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/eleven-am/goclip/internal/catalog"
	"github.com/eleven-am/goclip/internal/domain"
)

const (
	exportPreset       = "medium"
	exportVideoCodec   = "libx264"
	exportAudioCodec   = "aac"
	exportAudioBitrate = "128k"
)

type TextParams struct {
	Text     string
	FontSize int
	Color    string
	X        int
	Y        int
}

type CropParams struct {
	Width  int
	Height int
	X      int
	Y      int
}

type CommandBuilder struct {
	namer *Namer
}

func NewCommandBuilder(namer *Namer) *CommandBuilder {
	return &CommandBuilder{namer: namer}
}

// Build maps a request onto a single engine invocation. Split is not a
// single invocation; callers compose it from two Cut commands.
func (b *CommandBuilder) Build(req domain.Request, inputs []string) (domain.Command, error) {
	if err := req.Validate(); err != nil {
		return domain.Command{}, err
	}
	if req.Kind == domain.OpConcatenate {
		return b.Concat(inputs)
	}
	if len(inputs) == 0 || strings.TrimSpace(inputs[0]) == "" {
		return domain.Command{}, domain.Invalid("%s needs an input", req.Kind)
	}
	input := inputs[0]

	switch req.Kind {
	case domain.OpCut:
		return b.Cut(input, req.Start, req.End), nil
	case domain.OpSpeed:
		return b.Speed(input, req.Multiplier), nil
	case domain.OpRotate:
		return b.Rotate(input, req.Degrees), nil
	case domain.OpFilter:
		return b.Filter(input, req.Filter), nil
	case domain.OpText:
		return b.Text(input, TextParams{Text: req.Text, FontSize: req.FontSize, Color: req.Color, X: req.X, Y: req.Y})
	case domain.OpAudio:
		return b.Audio(input, req.AudioLocator, req.Volume), nil
	case domain.OpCrop:
		return b.Crop(input, CropParams{Width: req.Width, Height: req.Height, X: req.X, Y: req.Y}), nil
	case domain.OpExport:
		settings := domain.DefaultExportSettings()
		if req.Settings != nil {
			settings = *req.Settings
		}
		return b.Export(input, settings), nil
	case domain.OpProbe:
		return b.Probe(input), nil
	default:
		return domain.Command{}, domain.Invalid("%s is not a single engine command", req.Kind)
	}
}

func baseArgs() []string {
	return []string{"-nostats", "-hide_banner", "-loglevel", "warning", "-y"}
}

// Cut trims [start,end) without re-encoding. A non-positive end leaves the
// window open to the end of the input.
func (b *CommandBuilder) Cut(input string, start, end float64) domain.Command {
	output := b.namer.Path(domain.OpCut, DefaultFormat)

	args := append(baseArgs(), "-i", input, "-ss", formatTime(start))
	if end > start {
		args = append(args, "-to", formatTime(end))
	}
	args = append(args, "-c", "copy", output)

	return domain.Command{Kind: domain.OpCut, Args: args, Output: output}
}

// Speed retimes video with setpts=(1/m)*PTS and audio with atempo=m. The
// two filters work in inverse domains, so the factors differ on purpose.
func (b *CommandBuilder) Speed(input string, multiplier float64) domain.Command {
	output := b.namer.Path(domain.OpSpeed, DefaultFormat)

	graph := fmt.Sprintf("[0:v]setpts=%s*PTS[v];[0:a]atempo=%s[a]",
		formatFactor(1/multiplier), formatFactor(multiplier))

	args := append(baseArgs(),
		"-i", input,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "[a]",
		output,
	)

	return domain.Command{Kind: domain.OpSpeed, Args: args, Output: output}
}

func (b *CommandBuilder) Rotate(input string, degrees int) domain.Command {
	return b.videoFilter(domain.OpRotate, input, catalog.Transpose(degrees))
}

func (b *CommandBuilder) Filter(input string, name string) domain.Command {
	return b.videoFilter(domain.OpFilter, input, catalog.FilterExpression(name))
}

func (b *CommandBuilder) Text(input string, p TextParams) (domain.Command, error) {
	if strings.TrimSpace(p.Text) == "" {
		return domain.Command{}, domain.Invalid("overlay text is empty")
	}
	if p.FontSize <= 0 {
		return domain.Command{}, domain.Invalid("font size %d must be positive", p.FontSize)
	}
	if !domain.ValidColor(p.Color) {
		return domain.Command{}, domain.Invalid("color %q is not a name or hex value", p.Color)
	}

	expr := fmt.Sprintf("drawtext=text='%s':fontsize=%d:fontcolor=%s:x=%d:y=%d",
		escapeDrawText(p.Text), p.FontSize, p.Color, p.X, p.Y)

	return b.videoFilter(domain.OpText, input, expr), nil
}

func (b *CommandBuilder) Crop(input string, p CropParams) domain.Command {
	return b.videoFilter(domain.OpCrop, input, fmt.Sprintf("crop=%d:%d:%d:%d", p.Width, p.Height, p.X, p.Y))
}

func (b *CommandBuilder) videoFilter(kind domain.OpKind, input, expr string) domain.Command {
	output := b.namer.Path(kind, DefaultFormat)

	args := append(baseArgs(), "-i", input, "-vf", expr, output)

	return domain.Command{Kind: kind, Args: args, Output: output}
}

// Audio mixes a second audio source into the primary one. The primary
// input decides the length and its video stream is copied untouched.
func (b *CommandBuilder) Audio(video, audio string, volume float64) domain.Command {
	output := b.namer.Path(domain.OpAudio, DefaultFormat)

	graph := fmt.Sprintf("[1:a]volume=%s[a1];[0:a][a1]amix=inputs=2:duration=first:dropout_transition=3[aout]",
		formatFactor(volume))

	args := append(baseArgs(),
		"-i", video,
		"-i", audio,
		"-filter_complex", graph,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		output,
	)

	return domain.Command{Kind: domain.OpAudio, Args: args, Output: output}
}

func (b *CommandBuilder) Export(input string, s domain.ExportSettings) domain.Command {
	output := b.namer.Path(domain.OpExport, s.Format)
	width, height := catalog.Dimensions(s.Resolution, s.AspectRatio)

	args := append(baseArgs(),
		"-i", input,
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-b:v", catalog.Bitrate(s.Quality),
		"-c:v", exportVideoCodec,
		"-preset", exportPreset,
		"-c:a", exportAudioCodec,
		"-b:a", exportAudioBitrate,
		output,
	)

	return domain.Command{Kind: domain.OpExport, Args: args, Output: output}
}

func (b *CommandBuilder) Concat(inputs []string) (domain.Command, error) {
	if len(inputs) == 0 {
		return domain.Command{}, domain.Invalid("concatenate needs at least one input")
	}

	output := b.namer.Path(domain.OpConcatenate, DefaultFormat)

	args := baseArgs()
	var graph strings.Builder
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return domain.Command{}, domain.Invalid("concatenate input %d is empty", i)
		}
		args = append(args, "-i", in)
		fmt.Fprintf(&graph, "[%d:v][%d:a]", i, i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1[outv][outa]", len(inputs))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[outv]",
		"-map", "[outa]",
		output,
	)

	return domain.Command{Kind: domain.OpConcatenate, Args: args, Output: output}, nil
}

// Probe decodes the whole input into the null muxer. Only the log matters,
// so it keeps the default log level where the Duration line is printed.
func (b *CommandBuilder) Probe(input string) domain.Command {
	return domain.Command{
		Kind: domain.OpProbe,
		Args: []string{"-nostats", "-hide_banner", "-i", input, "-f", "null", "-"},
	}
}
