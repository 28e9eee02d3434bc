package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/ffmpeg"
)

type stubEngine struct {
	mu      sync.Mutex
	args    [][]string
	respond func(ctx context.Context) (domain.Result, error)
}

func (s *stubEngine) Execute(ctx context.Context, args []string) (domain.Result, error) {
	s.mu.Lock()
	s.args = append(s.args, args)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(ctx)
	}
	return domain.Result{Success: true}, nil
}

func newPipeline(t *testing.T, engine domain.Engine) *Pipeline {
	t.Helper()
	p, err := New(Options{
		Engine:  engine,
		Builder: ffmpeg.NewCommandBuilder(ffmpeg.NewNamer(t.TempDir(), "test")),
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestDefaults(t *testing.T) {
	p := newPipeline(t, &stubEngine{})
	if got := p.Settings(); got != domain.DefaultExportSettings() {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestExportReportsCheckpoints(t *testing.T) {
	engine := &stubEngine{}
	p := newPipeline(t, engine)
	if err := p.SetResolution(domain.Res4K); err != nil {
		t.Fatalf("set resolution: %v", err)
	}
	if err := p.SetAspectRatio(domain.Aspect9x16); err != nil {
		t.Fatalf("set aspect: %v", err)
	}

	var seen []int
	engine.respond = func(context.Context) (domain.Result, error) {
		return domain.Result{Success: true}, nil
	}

	ch, cancel := p.Subscribe()
	defer cancel()
	<-ch

	collected := make(chan []int)
	go func() {
		var out []int
		for st := range ch {
			out = append(out, st.Progress)
			if !st.Exporting && st.Progress == ProgressDone {
				break
			}
		}
		collected <- out
	}()

	path, err := p.Export(context.Background(), "final.mp4")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	seen = <-collected

	if len(seen) == 0 || seen[len(seen)-1] != ProgressDone {
		t.Fatalf("expected to end at 100, saw %v", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress went backwards: %v", seen)
		}
	}

	if !strings.HasSuffix(path, "_export.mp4") {
		t.Fatalf("unexpected output %s", path)
	}
	st := p.State()
	if st.Completed != path || st.Exporting || st.Err != "" {
		t.Fatalf("unexpected final state %+v", st)
	}
	if got := argValue(engine.args[0], "-vf"); got != "scale=2160:3840" {
		t.Fatalf("unexpected scale %q", got)
	}
}

func TestExportWithoutSource(t *testing.T) {
	engine := &stubEngine{}
	p := newPipeline(t, engine)

	if _, err := p.Export(context.Background(), ""); !errors.Is(err, domain.ErrNoSource) {
		t.Fatalf("expected no source, got %v", err)
	}
	if got := p.State().Err; got != MsgNoSource {
		t.Fatalf("unexpected message %q", got)
	}
	if len(engine.args) != 0 {
		t.Fatalf("engine should not run")
	}
}

func TestExportFailureMessages(t *testing.T) {
	engine := &stubEngine{respond: func(context.Context) (domain.Result, error) {
		return domain.Result{Success: false}, nil
	}}
	p := newPipeline(t, engine)

	if _, err := p.Export(context.Background(), "final.mp4"); !errors.Is(err, domain.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	st := p.State()
	if st.Err != MsgFailed || st.Exporting || st.Completed != "" {
		t.Fatalf("unexpected state %+v", st)
	}

	p.ClearError()
	engine.respond = func(context.Context) (domain.Result, error) {
		return domain.Result{}, errors.New("no such file")
	}
	if _, err := p.Export(context.Background(), "final.mp4"); !errors.Is(err, domain.ErrEngineException) {
		t.Fatalf("expected engine exception, got %v", err)
	}
	if got := p.State().Err; got != "Export error: no such file" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestExportTimeout(t *testing.T) {
	engine := &stubEngine{respond: func(ctx context.Context) (domain.Result, error) {
		<-ctx.Done()
		return domain.Result{}, ctx.Err()
	}}
	p, err := New(Options{
		Engine:  engine,
		Builder: ffmpeg.NewCommandBuilder(ffmpeg.NewNamer(t.TempDir(), "test")),
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := p.Export(context.Background(), "final.mp4"); !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got := p.State().Err; got != MsgTimeout {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSettingsFrozenWhileExporting(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	engine := &stubEngine{respond: func(context.Context) (domain.Result, error) {
		close(started)
		<-release
		return domain.Result{Success: true}, nil
	}}
	p := newPipeline(t, engine)

	done := make(chan error, 1)
	go func() {
		_, err := p.Export(context.Background(), "final.mp4")
		done <- err
	}()

	<-started
	if err := p.SetQuality(10); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	if _, err := p.Export(context.Background(), "other.mp4"); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second export should be rejected, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("export: %v", err)
	}
	if p.Settings().Quality != 80 {
		t.Fatalf("quality changed during export")
	}
}

func TestSettingsValidation(t *testing.T) {
	p := newPipeline(t, &stubEngine{})

	if err := p.SetQuality(101); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected invalid quality, got %v", err)
	}
	if err := p.SetResolution("8k"); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected invalid resolution, got %v", err)
	}
	if err := p.SetAspectRatio("4:3"); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected invalid aspect, got %v", err)
	}
	if err := p.SetFormat("mp4; rm"); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if err := p.SetFormat("mov"); err != nil {
		t.Fatalf("mov should be accepted: %v", err)
	}
	if p.Settings() != (domain.ExportSettings{Resolution: domain.Res1080p, AspectRatio: domain.Aspect16x9, Quality: 80, Format: "mov"}) {
		t.Fatalf("unexpected settings %+v", p.Settings())
	}
}

func TestExportTimelineMergesFirst(t *testing.T) {
	engine := &stubEngine{}
	p := newPipeline(t, engine)

	path, err := p.ExportTimeline(context.Background(), []string{"a.mp4", "b.mp4", "c.mp4"})
	if err != nil {
		t.Fatalf("export timeline: %v", err)
	}

	if len(engine.args) != 2 {
		t.Fatalf("expected concat then export, got %d runs", len(engine.args))
	}
	graph := argValue(engine.args[0], "-filter_complex")
	if !strings.Contains(graph, "concat=n=3:v=1:a=1") {
		t.Fatalf("first run should concatenate: %q", graph)
	}
	merged := engine.args[0][len(engine.args[0])-1]
	if !strings.HasSuffix(merged, "_merged.mp4") {
		t.Fatalf("unexpected merged output %s", merged)
	}
	if argValue(engine.args[1], "-i") != merged {
		t.Fatalf("export should read the merged file: %v", engine.args[1])
	}
	if p.State().Completed != path {
		t.Fatalf("completed path not published")
	}
}

func TestExportTimelineMergeFailure(t *testing.T) {
	engine := &stubEngine{respond: func(context.Context) (domain.Result, error) {
		return domain.Result{Success: false}, nil
	}}
	p := newPipeline(t, engine)

	_, err := p.ExportTimeline(context.Background(), []string{"a.mp4", "b.mp4"})
	var opErr *domain.OpError
	if !errors.As(err, &opErr) || opErr.Op != domain.OpConcatenate {
		t.Fatalf("expected concatenate failure, got %v", err)
	}
	if len(engine.args) != 1 {
		t.Fatalf("export must not run after a failed merge")
	}
	if st := p.State(); st.Err != MsgFailed || st.Exporting {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestExportTimelineRejectsEmptyLocator(t *testing.T) {
	p := newPipeline(t, &stubEngine{})
	if _, err := p.ExportTimeline(context.Background(), []string{"a.mp4", ""}); !errors.Is(err, domain.ErrNoSource) {
		t.Fatalf("expected no source, got %v", err)
	}
	if _, err := p.ExportTimeline(context.Background(), nil); !errors.Is(err, domain.ErrNoSource) {
		t.Fatalf("expected no source for empty timeline, got %v", err)
	}
}
