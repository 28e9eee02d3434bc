package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/ffmpeg"
	"github.com/eleven-am/goclip/internal/logging"
	"github.com/eleven-am/goclip/internal/metrics"
	"github.com/eleven-am/goclip/internal/notify"
	"github.com/eleven-am/goclip/internal/probe"
	"github.com/eleven-am/goclip/internal/timeline"
)

const DefaultTimeout = 10 * time.Minute

type Options struct {
	Engine  domain.Engine
	Builder *ffmpeg.CommandBuilder
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Session runs edit operations against one timeline, one at a time.
// A request that arrives while another is processing is rejected with
// domain.ErrBusy.
type Session struct {
	engine  domain.Engine
	builder *ffmpeg.CommandBuilder
	prober  *probe.Prober
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	timeline   *timeline.Timeline
	processing bool
	progress   string
	errMsg     string
	panel      domain.Panel
	closed     bool

	state *notify.Broadcaster[domain.SessionState]
}

func New(opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	return &Session{
		engine:   opts.Engine,
		builder:  opts.Builder,
		prober:   probe.NewProber(opts.Engine, opts.Builder),
		timeout:  opts.Timeout,
		logger:   logging.WithComponent(opts.Logger, "session"),
		metrics:  opts.Metrics,
		timeline: timeline.New(),
		state:    notify.NewBroadcaster(domain.SessionState{}),
	}
}

// Load resets the timeline to the given source and probes its duration.
// A failed or empty probe leaves the end unknown.
func (s *Session) Load(ctx context.Context, locator string) (domain.Clip, error) {
	if locator == "" {
		return domain.Clip{}, domain.ErrNoSource
	}

	s.mu.Lock()
	if err := s.admit(); err != nil {
		s.mu.Unlock()
		return domain.Clip{}, err
	}
	clip := s.timeline.Load(locator)
	s.processing = true
	s.progress = loadingLabel
	s.errMsg = ""
	s.panel = domain.PanelNone
	s.publishLocked()
	s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	duration, err := s.prober.Probe(probeCtx, locator)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err != nil:
		s.logger.Warn("probe failed", "locator", locator, "error", err)
	case duration > 0:
		if err := s.timeline.SetEnd(clip.ID, duration); err == nil {
			clip.End = duration
		}
	default:
		s.logger.Debug("duration unknown", "locator", locator)
	}

	s.processing = false
	s.progress = ""
	s.publishLocked()

	s.logger.Info("source loaded", "locator", locator, "clip_id", clip.ID, "duration", clip.End)
	return clip, nil
}

func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(); err != nil {
		return err
	}
	if err := s.timeline.Select(id); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// Apply runs one edit operation on the selected clip. On success the
// derived clip is returned and becomes the selection; on failure the
// timeline is left untouched and the error is also published as a message.
func (s *Session) Apply(ctx context.Context, req domain.Request) (domain.Clip, error) {
	req = req.WithDefaults()
	if !req.Kind.Editing() {
		s.metrics.IncRejected("invalid")
		return domain.Clip{}, &domain.OpError{Op: req.Kind, Err: domain.Invalid("%q is not an edit operation", req.Kind)}
	}
	if err := req.Validate(); err != nil {
		s.metrics.IncRejected("invalid")
		return domain.Clip{}, &domain.OpError{Op: req.Kind, Err: err}
	}

	source, err := s.begin(req)
	if err != nil {
		return domain.Clip{}, &domain.OpError{Op: req.Kind, Err: err}
	}

	log := logging.WithOp(s.logger, string(req.Kind)).With("clip_id", source.ID)
	log.Debug("operation started")
	start := time.Now()

	var edit mutation
	if req.Kind == domain.OpSplit {
		edit, err = s.split(ctx, source, req)
	} else {
		edit, err = s.transform(ctx, source, req)
	}

	clip, err := s.finish(req, source, edit, err)
	if err != nil {
		log.Warn("operation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return domain.Clip{}, err
	}

	log.Info("operation applied", "new_clip_id", clip.ID, "output", clip.Locator, "duration_ms", time.Since(start).Milliseconds())
	return clip, nil
}

func (s *Session) Cut(ctx context.Context, start, end float64) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpCut, Start: start, End: end})
}

func (s *Session) Split(ctx context.Context, at float64) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpSplit, At: at})
}

func (s *Session) Speed(ctx context.Context, multiplier float64) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpSpeed, Multiplier: multiplier})
}

func (s *Session) Rotate(ctx context.Context, degrees int) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpRotate, Degrees: degrees})
}

func (s *Session) Filter(ctx context.Context, name string) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpFilter, Filter: name})
}

func (s *Session) Text(ctx context.Context, p ffmpeg.TextParams) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpText, Text: p.Text, FontSize: p.FontSize, Color: p.Color, X: p.X, Y: p.Y})
}

func (s *Session) Audio(ctx context.Context, locator string, volume float64) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpAudio, AudioLocator: locator, Volume: volume})
}

func (s *Session) Crop(ctx context.Context, p ffmpeg.CropParams) (domain.Clip, error) {
	return s.Apply(ctx, domain.Request{Kind: domain.OpCrop, Width: p.Width, Height: p.Height, X: p.X, Y: p.Y})
}

func (s *Session) ShowPanel(p domain.Panel) error {
	if !p.Valid() {
		return domain.Invalid("unknown panel %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel = p
	s.publishLocked()
	return nil
}

func (s *Session) HidePanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel = domain.PanelNone
	s.publishLocked()
}

func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.publishLocked()
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams state snapshots, starting with the current one.
func (s *Session) Subscribe() (<-chan domain.SessionState, func()) {
	return s.state.Subscribe()
}

// ExportSource returns the locators to export, checked under the same lock
// that admits edits: the last clip, or every clip in order when merge is
// set. It fails with domain.ErrBusy while an edit is processing and
// returns nil for an empty timeline.
func (s *Session) ExportSource(merge bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(); err != nil {
		return nil, err
	}
	if s.timeline.Len() == 0 {
		return nil, nil
	}
	if merge {
		return s.timeline.Locators(), nil
	}
	return []string{s.timeline.FinalLocator()}, nil
}

// Close ends the session. An operation still running finishes but later
// requests fail with domain.ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state.Close()
}

// mutation is the timeline change a successful operation produces.
type mutation struct {
	kind    domain.OpKind
	req     domain.Request
	replace domain.Clip
	insert  *domain.Clip
}

func (s *Session) admit() error {
	if s.closed {
		return domain.ErrClosed
	}
	if s.processing {
		s.metrics.IncRejected("busy")
		return domain.ErrBusy
	}
	return nil
}

func (s *Session) begin(req domain.Request) (domain.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admit(); err != nil {
		return domain.Clip{}, err
	}

	source, ok := s.timeline.Selected()
	if !ok {
		s.metrics.IncRejected("no_selection")
		return domain.Clip{}, domain.ErrNoSelection
	}

	if req.Kind == domain.OpSplit {
		if req.At <= source.Start {
			s.metrics.IncRejected("invalid")
			return domain.Clip{}, domain.Invalid("split time %g is not after the clip start %g", req.At, source.Start)
		}
		if source.End > 0 && req.At >= source.End {
			s.metrics.IncRejected("invalid")
			return domain.Clip{}, domain.Invalid("split time %g is past the clip end %g", req.At, source.End)
		}
	}

	s.processing = true
	s.progress = progressLabel(req.Kind)
	s.metrics.OperationStarted()
	s.publishLocked()

	return source, nil
}

func (s *Session) finish(req domain.Request, source domain.Clip, edit mutation, opErr error) (domain.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.publishLocked()
	defer s.metrics.OperationFinished()

	s.processing = false
	s.progress = ""
	if req.Kind != domain.OpRotate {
		s.panel = domain.PanelNone
	}

	if opErr == nil {
		opErr = s.commitLocked(source, edit)
	}

	if opErr != nil {
		s.errMsg = failureMessage(req.Kind, opErr)
		s.metrics.ObserveOperation(string(req.Kind), outcome(opErr))
		return domain.Clip{}, opErr
	}

	s.metrics.ObserveOperation(string(req.Kind), "success")
	if edit.insert != nil {
		return *edit.insert, nil
	}
	return edit.replace, nil
}

// commitLocked applies the mutation. The source slot is restored if the
// second half of a split cannot be inserted.
func (s *Session) commitLocked(source domain.Clip, edit mutation) error {
	if edit.replace.Name == "" {
		edit.replace.Name = clipName(edit.kind, edit.req, s.timeline.Len())
	}
	if err := s.timeline.Replace(source.ID, edit.replace); err != nil {
		return err
	}
	if edit.insert == nil {
		return nil
	}
	if err := s.timeline.InsertAfter(edit.replace.ID, *edit.insert); err != nil {
		_ = s.timeline.Replace(edit.replace.ID, source)
		return err
	}
	return s.timeline.Select(edit.insert.ID)
}

func (s *Session) transform(ctx context.Context, source domain.Clip, req domain.Request) (mutation, error) {
	cmd, err := s.builder.Build(req, []string{source.Locator})
	if err != nil {
		return mutation{}, &domain.OpError{Op: req.Kind, Err: err}
	}

	if err := s.run(ctx, cmd); err != nil {
		return mutation{}, err
	}

	clip := source
	clip.ID = timeline.NewClipID()
	clip.Locator = cmd.Output
	clip.Name = ""
	if req.Kind == domain.OpCut {
		clip.Start, clip.End = req.Start, req.End
	}

	return mutation{kind: req.Kind, req: req, replace: clip}, nil
}

// split cuts [0,at) and [at,end) from the source. Both cuts must succeed;
// a first output left behind by a failed second cut is not removed.
func (s *Session) split(ctx context.Context, source domain.Clip, req domain.Request) (mutation, error) {
	first := s.builder.Cut(source.Locator, 0, req.At)
	if err := s.run(ctx, first); err != nil {
		return mutation{}, err
	}

	second := s.builder.Cut(source.Locator, req.At, source.End)
	if err := s.run(ctx, second); err != nil {
		s.logger.Warn("split left an unused first part", "output", first.Output)
		return mutation{}, err
	}

	part1 := source
	part1.ID = timeline.NewClipID()
	part1.Locator = first.Output
	part1.End = req.At
	part1.Name = "Part 1"

	part2 := source
	part2.ID = timeline.NewClipID()
	part2.Locator = second.Output
	part2.Start = req.At
	part2.Name = "Part 2"

	return mutation{kind: req.Kind, req: req, replace: part1, insert: &part2}, nil
}

func (s *Session) run(ctx context.Context, cmd domain.Command) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.engine.Execute(ctx, cmd.Args)
	if err := classify(cmd.Kind, res, err); err != nil {
		if errors.Is(err, domain.ErrEngineFailure) {
			s.logger.Debug("engine log", "op", cmd.Kind, "log", res.Log)
		}
		return err
	}
	return nil
}

func (s *Session) snapshotLocked() domain.SessionState {
	st := domain.SessionState{
		Clips:      s.timeline.Clips(),
		Processing: s.processing,
		Progress:   s.progress,
		Err:        s.errMsg,
		Panel:      s.panel,
	}
	if sel, ok := s.timeline.Selected(); ok {
		st.Selected = &sel
	}
	return st
}

func (s *Session) publishLocked() {
	s.state.Publish(s.snapshotLocked())
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrEngineFailure):
		return "engine_failure"
	case errors.Is(err, domain.ErrEngineException):
		return "engine_exception"
	case errors.Is(err, domain.ErrInvalidParams):
		return "invalid"
	default:
		return "error"
	}
}
