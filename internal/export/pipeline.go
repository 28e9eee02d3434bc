package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/eleven-am/goclip/internal/catalog"
	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/ffmpeg"
	"github.com/eleven-am/goclip/internal/logging"
	"github.com/eleven-am/goclip/internal/metrics"
	"github.com/eleven-am/goclip/internal/notify"
)

const (
	DefaultTimeout = 30 * time.Minute

	MsgNoSource = "No video to export"
	MsgFailed   = "Export failed. Please try again."
	MsgTimeout  = "Export timed out"
)

// Progress checkpoints. They are fixed milestones, not engine-reported.
const (
	ProgressPrepared = 10
	ProgressStarted  = 50
	ProgressDone     = 100
)

var formatPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,8}$`)

type Options struct {
	Engine   domain.Engine
	Builder  *ffmpeg.CommandBuilder
	Settings domain.ExportSettings
	Timeout  time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type Pipeline struct {
	engine  domain.Engine
	builder *ffmpeg.CommandBuilder
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	settings  domain.ExportSettings
	exporting bool
	progress  int
	completed string
	errMsg    string

	state *notify.Broadcaster[domain.ExportState]
}

func New(opts Options) (*Pipeline, error) {
	if opts.Settings == (domain.ExportSettings{}) {
		opts.Settings = domain.DefaultExportSettings()
	}
	if err := ValidateSettings(opts.Settings); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	p := &Pipeline{
		engine:   opts.Engine,
		builder:  opts.Builder,
		timeout:  opts.Timeout,
		logger:   logging.WithComponent(opts.Logger, "export"),
		metrics:  opts.Metrics,
		settings: opts.Settings,
	}
	p.state = notify.NewBroadcaster(p.snapshotLocked())
	return p, nil
}

func ValidateSettings(s domain.ExportSettings) error {
	if !catalog.KnownResolution(s.Resolution) {
		return domain.Invalid("unknown resolution %q", s.Resolution)
	}
	if !catalog.KnownAspectRatio(s.AspectRatio) {
		return domain.Invalid("unknown aspect ratio %q", s.AspectRatio)
	}
	if s.Quality < 0 || s.Quality > 100 {
		return domain.Invalid("quality %d is outside [0,100]", s.Quality)
	}
	if !formatPattern.MatchString(s.Format) {
		return domain.Invalid("format %q is not a container extension", s.Format)
	}
	return nil
}

func (p *Pipeline) Settings() domain.ExportSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// SetSettings replaces all settings at once. Settings are frozen while an
// export runs.
func (p *Pipeline) SetSettings(s domain.ExportSettings) error {
	return p.update(func(cur *domain.ExportSettings) { *cur = s })
}

func (p *Pipeline) SetResolution(r domain.Resolution) error {
	return p.update(func(cur *domain.ExportSettings) { cur.Resolution = r })
}

func (p *Pipeline) SetAspectRatio(a domain.AspectRatio) error {
	return p.update(func(cur *domain.ExportSettings) { cur.AspectRatio = a })
}

func (p *Pipeline) SetQuality(q int) error {
	return p.update(func(cur *domain.ExportSettings) { cur.Quality = q })
}

func (p *Pipeline) SetFormat(f string) error {
	return p.update(func(cur *domain.ExportSettings) { cur.Format = f })
}

func (p *Pipeline) update(fn func(*domain.ExportSettings)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exporting {
		p.metrics.IncRejected("busy")
		return domain.ErrBusy
	}

	next := p.settings
	fn(&next)
	if err := ValidateSettings(next); err != nil {
		return err
	}
	p.settings = next
	p.publishLocked()
	return nil
}

// Export renders locator with the current settings and returns the output
// path.
func (p *Pipeline) Export(ctx context.Context, locator string) (string, error) {
	return p.ExportTimeline(ctx, []string{locator})
}

// ExportTimeline renders the given clips in order. More than one clip is
// concatenated first and the merged file is exported.
func (p *Pipeline) ExportTimeline(ctx context.Context, locators []string) (string, error) {
	settings, err := p.begin(locators)
	if err != nil {
		return "", &domain.OpError{Op: domain.OpExport, Err: err}
	}
	p.metrics.OperationStarted()
	defer p.metrics.OperationFinished()

	start := time.Now()
	log := p.logger.With("clips", len(locators), "resolution", settings.Resolution, "aspect", settings.AspectRatio)

	p.setProgress(ProgressPrepared)

	source := locators[0]
	if len(locators) > 1 {
		merged, err := p.concat(ctx, locators)
		if err != nil {
			p.fail(err.opErr, err.cause)
			log.Warn("merge failed", "error", err.opErr)
			return "", err.opErr
		}
		log.Debug("timeline merged", "output", merged)
		source = merged
	}

	cmd := p.builder.Export(source, settings)

	type result struct {
		res domain.Result
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := p.execute(ctx, cmd.Args)
		done <- result{res, err}
	}()
	p.setProgress(ProgressStarted)

	r := <-done
	if opErr := classify(domain.OpExport, r.res, r.err); opErr != nil {
		p.fail(opErr, r.err)
		log.Warn("export failed", "error", opErr, "log", r.res.Log, "duration_ms", time.Since(start).Milliseconds())
		return "", opErr
	}

	p.mu.Lock()
	p.exporting = false
	p.progress = ProgressDone
	p.completed = cmd.Output
	p.publishLocked()
	p.mu.Unlock()

	p.metrics.ObserveExport("success")
	log.Info("export completed", "source", source, "output", cmd.Output, "duration_ms", time.Since(start).Milliseconds())
	return cmd.Output, nil
}

type stepError struct {
	opErr error
	cause error
}

func (p *Pipeline) concat(ctx context.Context, locators []string) (string, *stepError) {
	cmd, err := p.builder.Concat(locators)
	if err != nil {
		return "", &stepError{opErr: &domain.OpError{Op: domain.OpConcatenate, Err: err}, cause: err}
	}

	res, err := p.execute(ctx, cmd.Args)
	if opErr := classify(domain.OpConcatenate, res, err); opErr != nil {
		return "", &stepError{opErr: opErr, cause: err}
	}
	return cmd.Output, nil
}

func (p *Pipeline) execute(ctx context.Context, args []string) (domain.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.engine.Execute(ctx, args)
}

func (p *Pipeline) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errMsg = ""
	p.publishLocked()
}

func (p *Pipeline) State() domain.ExportState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pipeline) Subscribe() (<-chan domain.ExportState, func()) {
	return p.state.Subscribe()
}

func (p *Pipeline) Exporting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exporting
}

func (p *Pipeline) Close() {
	p.state.Close()
}

func (p *Pipeline) begin(locators []string) (domain.ExportSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exporting {
		p.metrics.IncRejected("busy")
		return domain.ExportSettings{}, domain.ErrBusy
	}
	if len(locators) == 0 || slices.Contains(locators, "") {
		p.errMsg = MsgNoSource
		p.publishLocked()
		p.metrics.IncRejected("no_source")
		return domain.ExportSettings{}, domain.ErrNoSource
	}

	p.exporting = true
	p.progress = 0
	p.completed = ""
	p.errMsg = ""
	p.publishLocked()

	return p.settings, nil
}

func (p *Pipeline) setProgress(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = v
	p.publishLocked()
}

func (p *Pipeline) fail(err, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exporting = false
	p.progress = 0
	switch {
	case errors.Is(err, domain.ErrTimeout):
		p.errMsg = MsgTimeout
		p.metrics.ObserveExport("timeout")
	case errors.Is(err, domain.ErrEngineException):
		p.errMsg = "Export error: " + cause.Error()
		p.metrics.ObserveExport("engine_exception")
	default:
		p.errMsg = MsgFailed
		p.metrics.ObserveExport("engine_failure")
	}
	p.publishLocked()
}

func classify(op domain.OpKind, res domain.Result, err error) error {
	switch {
	case err == nil && res.Success:
		return nil
	case err == nil:
		return &domain.OpError{Op: op, Err: domain.ErrEngineFailure}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.OpError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrTimeout, err)}
	default:
		return &domain.OpError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrEngineException, err)}
	}
}

func (p *Pipeline) snapshotLocked() domain.ExportState {
	return domain.ExportState{
		Settings:  p.settings,
		Exporting: p.exporting,
		Progress:  p.progress,
		Completed: p.completed,
		Err:       p.errMsg,
	}
}

func (p *Pipeline) publishLocked() {
	if p.state != nil {
		p.state.Publish(p.snapshotLocked())
	}
}
