// Package goclip provides a non-linear video editing core driven by ffmpeg.
//
// goclip keeps an ordered timeline of clips for one editing session and turns
// user edits (cut, split, speed, rotate, filter, text overlay, audio mix and
// crop) into ffmpeg argument lists. Every edit writes a new file and replaces
// or extends the timeline with a clip pointing at it. A final export scales
// and re-encodes the result using the configured resolution, aspect ratio and
// quality.
//
// # Architecture
//
// The Controller wires together:
//
//   - Engine: runs one ffmpeg invocation and reports success plus its log
//   - Session: the clip timeline and the single-flight edit state machine
//   - Export pipeline: settings, staged progress and the final render
//
// By default the Engine is the ffmpeg binary found on PATH. Tests and
// embedders may pass any implementation of the Engine interface.
//
// # Basic Usage
//
//	controller, err := goclip.NewController(goclip.Options{
//	    OutputDir: "/var/lib/goclip",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer controller.Close()
//
//	if _, err := controller.Load(ctx, "/videos/holiday.mp4"); err != nil {
//	    log.Fatal(err)
//	}
//	controller.Cut(ctx, 2, 14)
//	controller.Filter(ctx, "vintage")
//
//	path, err := controller.Export(ctx)
//
// # Single Flight
//
// A session runs at most one edit at a time. A request that arrives while
// another is processing fails with ErrBusy; it is never queued. Export
// settings are likewise frozen while an export runs.
//
// # Failures
//
// An edit that fails leaves the timeline exactly as it was. The failure is
// returned as an error wrapping one of the Err* kinds and is also published
// as a user-facing message in SessionState.Err until ClearError is called.
package goclip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/eleven-am/goclip/internal/catalog"
	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/engine"
	"github.com/eleven-am/goclip/internal/export"
	"github.com/eleven-am/goclip/internal/ffmpeg"
	"github.com/eleven-am/goclip/internal/logging"
	"github.com/eleven-am/goclip/internal/metrics"
	"github.com/eleven-am/goclip/internal/probe"
	"github.com/eleven-am/goclip/internal/session"
)

type (
	// Engine runs one ffmpeg invocation. A non-zero exit is reported as
	// Result.Success == false with a nil error; the error return is for
	// invocations that could not run at all.
	Engine = domain.Engine

	// Result is the outcome of one engine invocation.
	Result = domain.Result

	// Clip is one entry of the timeline: a media locator plus the window it
	// covers and display metadata.
	Clip = domain.Clip

	// Request describes one edit. Only the fields relevant to Kind are read.
	Request = domain.Request

	// OpKind names an edit or pipeline operation.
	OpKind = domain.OpKind

	// Panel is the transient edit panel shown alongside the timeline.
	Panel = domain.Panel

	// SessionState is the snapshot published to session subscribers.
	SessionState = domain.SessionState

	// ExportSettings controls the final render.
	ExportSettings = domain.ExportSettings

	// ExportState is the snapshot published to export subscribers.
	ExportState = domain.ExportState

	// Resolution is one of Res720p, Res1080p and Res4K.
	Resolution = domain.Resolution

	// AspectRatio is one of Aspect16x9, Aspect9x16 and Aspect1x1.
	AspectRatio = domain.AspectRatio

	// TextParams configures a text overlay.
	TextParams = ffmpeg.TextParams

	// CropParams is the crop rectangle in source pixels.
	CropParams = ffmpeg.CropParams

	// OpError wraps a failure with the operation that produced it.
	OpError = domain.OpError

	// CapabilityReport lists the ffmpeg filters and encoders edits rely on.
	CapabilityReport = engine.Report
)

const (
	OpCut         = domain.OpCut
	OpSplit       = domain.OpSplit
	OpSpeed       = domain.OpSpeed
	OpRotate      = domain.OpRotate
	OpFilter      = domain.OpFilter
	OpText        = domain.OpText
	OpAudio       = domain.OpAudio
	OpCrop        = domain.OpCrop
	OpExport      = domain.OpExport
	OpConcatenate = domain.OpConcatenate
	OpProbe       = domain.OpProbe

	Res720p  = domain.Res720p
	Res1080p = domain.Res1080p
	Res4K    = domain.Res4K

	Aspect16x9 = domain.Aspect16x9
	Aspect9x16 = domain.Aspect9x16
	Aspect1x1  = domain.Aspect1x1
)

var (
	// ErrEngineFailure means ffmpeg ran and reported failure.
	ErrEngineFailure = domain.ErrEngineFailure

	// ErrEngineException means ffmpeg could not be run or talked to.
	ErrEngineException = domain.ErrEngineException

	// ErrTimeout means an invocation exceeded EngineTimeout or ExportTimeout.
	ErrTimeout = domain.ErrTimeout

	// ErrBusy rejects a request made while another one is processing.
	ErrBusy = domain.ErrBusy

	// ErrNoSelection means an edit was requested with no clip selected.
	ErrNoSelection = domain.ErrNoSelection

	// ErrNoSource means there is nothing to load or export.
	ErrNoSource = domain.ErrNoSource

	// ErrInvalidParams rejects a request whose parameters fail validation.
	ErrInvalidParams = domain.ErrInvalidParams

	// ErrUnknownClip means a clip id is not on the timeline.
	ErrUnknownClip = domain.ErrUnknownClip

	// ErrClosed rejects requests after Close.
	ErrClosed = domain.ErrClosed
)

// Options configures the Controller behavior and dependencies.
type Options struct {
	// Engine runs ffmpeg invocations. When nil, the binary at FFmpegPath
	// is executed directly.
	Engine Engine

	// FFmpegPath is the ffmpeg binary used when Engine is nil.
	// Default: "ffmpeg" looked up on PATH.
	FFmpegPath string

	// OutputDir receives every derived clip and export. It is created if
	// missing.
	// Default: $TMPDIR/goclip.
	OutputDir string

	// Prefix starts every generated file name.
	// Default: "goclip".
	Prefix string

	// EngineTimeout bounds each edit and probe invocation.
	// Default: 10 minutes.
	EngineTimeout time.Duration

	// ExportTimeout bounds each export and merge invocation.
	// Default: 30 minutes.
	ExportTimeout time.Duration

	// Export holds the initial export settings.
	// Default: 1080p, 16:9, quality 80, mp4.
	Export ExportSettings

	// MergeTimeline exports every clip on the timeline concatenated in
	// order. When false only the last clip is exported.
	MergeTimeline bool

	// Logger receives structured logs. Default: discard.
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.FFmpegPath == "" {
		o.FFmpegPath = engine.DefaultBinary
	}
	if o.OutputDir == "" {
		o.OutputDir = filepath.Join(os.TempDir(), "goclip")
	}
	if o.Prefix == "" {
		o.Prefix = ffmpeg.DefaultPrefix
	}
	if o.EngineTimeout == 0 {
		o.EngineTimeout = session.DefaultTimeout
	}
	if o.ExportTimeout == 0 {
		o.ExportTimeout = export.DefaultTimeout
	}
	if o.Export == (ExportSettings{}) {
		o.Export = domain.DefaultExportSettings()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

func (o *Options) validate() error {
	if o.EngineTimeout < 0 || o.ExportTimeout < 0 {
		return fmt.Errorf("goclip: timeouts must not be negative")
	}
	if err := export.ValidateSettings(o.Export); err != nil {
		return fmt.Errorf("goclip: export settings: %w", err)
	}
	return nil
}

// Controller is the main entry point for editing. It owns one editing
// session and its export pipeline.
//
// A Controller is safe for concurrent use, but edits are serialized: see
// ErrBusy. Call Close when the session ends.
type Controller struct {
	opts    Options
	engine  Engine
	process *engine.Process
	builder *ffmpeg.CommandBuilder
	prober  *probe.Prober
	session *session.Session
	export  *export.Pipeline
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewController creates a Controller with the given options and makes sure
// the output directory exists.
func NewController(opts Options) (*Controller, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	c := &Controller{
		opts:    opts,
		metrics: metrics.New(),
		logger:  opts.Logger,
	}

	base := opts.Engine
	if base == nil {
		c.process = engine.NewProcess(opts.FFmpegPath)
		base = c.process
	}
	c.engine = engine.Instrument(base, c.metrics, logging.WithComponent(opts.Logger, "engine"))

	c.builder = ffmpeg.NewCommandBuilder(ffmpeg.NewNamer(opts.OutputDir, opts.Prefix))
	c.prober = probe.NewProber(c.engine, c.builder)

	c.session = session.New(session.Options{
		Engine:  c.engine,
		Builder: c.builder,
		Timeout: opts.EngineTimeout,
		Logger:  opts.Logger,
		Metrics: c.metrics,
	})

	pipeline, err := export.New(export.Options{
		Engine:   c.engine,
		Builder:  c.builder,
		Settings: opts.Export,
		Timeout:  opts.ExportTimeout,
		Logger:   opts.Logger,
		Metrics:  c.metrics,
	})
	if err != nil {
		return nil, err
	}
	c.export = pipeline

	return c, nil
}

// Load starts the session over with a single clip covering the source and
// probes its duration. When the duration cannot be read the clip's End
// stays 0.
func (c *Controller) Load(ctx context.Context, locator string) (Clip, error) {
	return c.session.Load(ctx, locator)
}

// Select makes the clip with the given id the target of the next edit.
func (c *Controller) Select(id string) error {
	return c.session.Select(id)
}

// Apply runs one edit on the selected clip.
//
// Cut, speed, rotate, filter, text, audio and crop replace the selected
// clip in place. Split replaces it with "Part 1" and inserts "Part 2"
// right after it. The new (or last inserted) clip becomes the selection.
//
// Export, concatenate and probe are not edits; use Export, Concatenate and
// Probe instead.
func (c *Controller) Apply(ctx context.Context, req Request) (Clip, error) {
	return c.session.Apply(ctx, req)
}

// Cut keeps [start, end) of the selected clip without re-encoding.
func (c *Controller) Cut(ctx context.Context, start, end float64) (Clip, error) {
	return c.session.Cut(ctx, start, end)
}

// Split divides the selected clip at the given time into two clips.
func (c *Controller) Split(ctx context.Context, at float64) (Clip, error) {
	return c.session.Split(ctx, at)
}

// Speed retimes video and audio of the selected clip by multiplier.
func (c *Controller) Speed(ctx context.Context, multiplier float64) (Clip, error) {
	return c.session.Speed(ctx, multiplier)
}

// Rotate turns the selected clip clockwise by 90, 180 or 270 degrees. Zero
// means a quarter turn; any other angle leaves the picture as is.
func (c *Controller) Rotate(ctx context.Context, degrees int) (Clip, error) {
	return c.session.Rotate(ctx, degrees)
}

// Filter applies a named look from Filters. Unknown names apply a neutral
// filter rather than failing.
func (c *Controller) Filter(ctx context.Context, name string) (Clip, error) {
	return c.session.Filter(ctx, name)
}

// Text burns a text overlay into the selected clip.
func (c *Controller) Text(ctx context.Context, p TextParams) (Clip, error) {
	return c.session.Text(ctx, p)
}

// Audio mixes a second audio source into the selected clip at the given
// volume. The clip keeps its length.
func (c *Controller) Audio(ctx context.Context, locator string, volume float64) (Clip, error) {
	return c.session.Audio(ctx, locator, volume)
}

// Crop keeps the given rectangle of the selected clip.
func (c *Controller) Crop(ctx context.Context, p CropParams) (Clip, error) {
	return c.session.Crop(ctx, p)
}

// ShowPanel records which edit panel the user has open. Completing any
// edit other than a rotation closes it.
func (c *Controller) ShowPanel(p Panel) error {
	return c.session.ShowPanel(p)
}

func (c *Controller) HidePanel() {
	c.session.HidePanel()
}

// State returns the current session snapshot.
func (c *Controller) State() SessionState {
	return c.session.State()
}

// Subscribe streams session snapshots. The channel holds at most one
// pending snapshot; slow readers see the newest state, not every state.
// Call the returned func to unsubscribe.
func (c *Controller) Subscribe() (<-chan SessionState, func()) {
	return c.session.Subscribe()
}

// ClearError removes the published session error message.
func (c *Controller) ClearError() {
	c.session.ClearError()
}

// ExportSettings returns the settings the next export will use.
func (c *Controller) ExportSettings() ExportSettings {
	return c.export.Settings()
}

// SetExportSettings replaces the export settings. It fails with ErrBusy
// while an export runs and with ErrInvalidParams for unknown values.
func (c *Controller) SetExportSettings(s ExportSettings) error {
	return c.export.SetSettings(s)
}

func (c *Controller) SetResolution(r Resolution) error {
	return c.export.SetResolution(r)
}

func (c *Controller) SetAspectRatio(a AspectRatio) error {
	return c.export.SetAspectRatio(a)
}

func (c *Controller) SetQuality(q int) error {
	return c.export.SetQuality(q)
}

func (c *Controller) SetFormat(f string) error {
	return c.export.SetFormat(f)
}

// Export renders the timeline and returns the output path.
//
// Progress is published at fixed checkpoints: 10 before ffmpeg starts, 50
// once it is running and 100 on completion. With MergeTimeline set and more
// than one clip, the clips are concatenated first and the merged file is
// exported; otherwise the last clip is the export source.
func (c *Controller) Export(ctx context.Context) (string, error) {
	locators, err := c.session.ExportSource(c.opts.MergeTimeline)
	if err != nil {
		return "", &OpError{Op: OpExport, Err: err}
	}
	return c.export.ExportTimeline(ctx, locators)
}

// ExportFile renders any file with the current export settings, bypassing
// the timeline.
func (c *Controller) ExportFile(ctx context.Context, locator string) (string, error) {
	return c.export.Export(ctx, locator)
}

// ExportState returns the current export snapshot.
func (c *Controller) ExportState() ExportState {
	return c.export.State()
}

// SubscribeExport streams export snapshots, including progress.
func (c *Controller) SubscribeExport() (<-chan ExportState, func()) {
	return c.export.Subscribe()
}

// ClearExportError removes the published export error message.
func (c *Controller) ClearExportError() {
	c.export.ClearError()
}

// Concatenate joins the given files in order into a new file. It does not
// touch the timeline.
func (c *Controller) Concatenate(ctx context.Context, locators []string) (string, error) {
	cmd, err := c.builder.Concat(locators)
	if err != nil {
		return "", &OpError{Op: OpConcatenate, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ExportTimeout)
	defer cancel()

	res, err := c.engine.Execute(ctx, cmd.Args)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", &OpError{Op: OpConcatenate, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
	case err != nil:
		return "", &OpError{Op: OpConcatenate, Err: fmt.Errorf("%w: %v", ErrEngineException, err)}
	case !res.Success:
		return "", &OpError{Op: OpConcatenate, Err: ErrEngineFailure}
	}

	c.logger.Info("files concatenated", "count", len(locators), "output", cmd.Output)
	return cmd.Output, nil
}

// Probe returns the duration of a media file in seconds, or 0 when ffmpeg
// does not report one.
func (c *Controller) Probe(ctx context.Context, locator string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.EngineTimeout)
	defer cancel()
	return c.prober.Probe(ctx, locator)
}

// Detect checks the ffmpeg binary for the filters and encoders the edits
// use. It always inspects FFmpegPath, even when a custom Engine is set.
func (c *Controller) Detect(ctx context.Context) (CapabilityReport, error) {
	return engine.Detect(ctx, c.opts.FFmpegPath)
}

// Filters lists the names accepted by Filter.
func Filters() []string {
	return catalog.Filters()
}

// Metrics exposes the collectors behind MetricsHandler so HTTP front ends
// can count their own requests in the same registry.
func (c *Controller) Metrics() *metrics.Metrics {
	return c.metrics
}

// MetricsHandler serves the controller's Prometheus metrics.
func (c *Controller) MetricsHandler() http.Handler {
	return c.metrics.Handler()
}

// OutputDir is where derived clips and exports are written.
func (c *Controller) OutputDir() string {
	return c.opts.OutputDir
}

// Close ends the session, closes subscriber channels and kills any ffmpeg
// process still running.
func (c *Controller) Close() {
	c.session.Close()
	c.export.Close()
	if c.process != nil {
		c.process.Close()
	}
}
