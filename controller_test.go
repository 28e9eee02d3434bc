package goclip

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type stubEngine struct {
	mu    sync.Mutex
	calls [][]string
	fail  func(args []string) bool
}

func (s *stubEngine) Execute(ctx context.Context, args []string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, args)

	if argValue(args, "-f") == "null" {
		return Result{Success: true, Log: "Input #0, mov,mp4\n  Duration: 00:00:20.00, start: 0.000000"}, nil
	}
	if s.fail != nil && s.fail(args) {
		return Result{Success: false, Log: "Conversion failed!"}, nil
	}
	return Result{Success: true}, nil
}

func (s *stubEngine) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubEngine) last() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func newTestController(t *testing.T, engine Engine, mutate func(*Options)) *Controller {
	t.Helper()
	opts := Options{
		Engine:    engine,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Prefix:    "test",
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewController(opts)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewControllerCreatesOutputDir(t *testing.T) {
	c := newTestController(t, &stubEngine{}, nil)
	if info, err := os.Stat(c.OutputDir()); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestNewControllerRejectsBadExportSettings(t *testing.T) {
	_, err := NewController(Options{
		Engine:    &stubEngine{},
		OutputDir: t.TempDir(),
		Export:    ExportSettings{Resolution: "8k", AspectRatio: Aspect16x9, Quality: 80, Format: "mp4"},
	})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestEditThenExportLastClip(t *testing.T) {
	engine := &stubEngine{}
	c := newTestController(t, engine, nil)
	ctx := context.Background()

	if _, err := c.Load(ctx, "/videos/source.mp4"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Cut(ctx, 2, 18); err != nil {
		t.Fatalf("cut: %v", err)
	}
	if _, err := c.Split(ctx, 8); err != nil {
		t.Fatalf("split: %v", err)
	}

	st := c.State()
	if len(st.Clips) != 2 {
		t.Fatalf("expected 2 clips after split, got %d", len(st.Clips))
	}

	if err := c.SetResolution(Res720p); err != nil {
		t.Fatalf("set resolution: %v", err)
	}
	path, err := c.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	args := engine.last()
	if argValue(args, "-i") != st.Clips[1].Locator {
		t.Fatalf("export should read the last clip, got %v", args)
	}
	if argValue(args, "-vf") != "scale=1280:720" {
		t.Fatalf("unexpected scale in %v", args)
	}
	if !strings.HasPrefix(path, c.OutputDir()) || !strings.HasSuffix(path, "_export.mp4") {
		t.Fatalf("unexpected export path %s", path)
	}
	if es := c.ExportState(); es.Completed != path || es.Progress != 100 {
		t.Fatalf("unexpected export state %+v", es)
	}
}

func TestExportMergesTimeline(t *testing.T) {
	engine := &stubEngine{}
	c := newTestController(t, engine, func(o *Options) { o.MergeTimeline = true })
	ctx := context.Background()

	if _, err := c.Load(ctx, "/videos/source.mp4"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Split(ctx, 5); err != nil {
		t.Fatalf("split: %v", err)
	}

	before := engine.count()
	if _, err := c.Export(ctx); err != nil {
		t.Fatalf("export: %v", err)
	}
	if engine.count()-before != 2 {
		t.Fatalf("expected merge and export runs, got %d", engine.count()-before)
	}
}

func TestExportWithoutSource(t *testing.T) {
	c := newTestController(t, &stubEngine{}, nil)
	if _, err := c.Export(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected no source, got %v", err)
	}
	if got := c.ExportState().Err; got != "No video to export" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestFailedEditPublishesMessage(t *testing.T) {
	engine := &stubEngine{fail: func(args []string) bool {
		return argValue(args, "-vf") != "" && strings.HasPrefix(argValue(args, "-vf"), "crop=")
	}}
	c := newTestController(t, engine, nil)
	ctx := context.Background()

	if _, err := c.Load(ctx, "/videos/source.mp4"); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err := c.Crop(ctx, CropParams{Width: 100, Height: 100})
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != OpCrop || !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("expected crop engine failure, got %v", err)
	}
	if got := c.State().Err; got != "Failed to crop video" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestConcatenateAndProbe(t *testing.T) {
	engine := &stubEngine{}
	c := newTestController(t, engine, nil)
	ctx := context.Background()

	out, err := c.Concatenate(ctx, []string{"a.mp4", "b.mp4"})
	if err != nil {
		t.Fatalf("concatenate: %v", err)
	}
	if !strings.HasSuffix(out, "_merged.mp4") {
		t.Fatalf("unexpected concat output %s", out)
	}
	if _, err := c.Concatenate(ctx, nil); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}

	d, err := c.Probe(ctx, "a.mp4")
	if err != nil || d != 20 {
		t.Fatalf("unexpected probe result %v %v", d, err)
	}
}

func TestFiltersListed(t *testing.T) {
	names := Filters()
	if len(names) != 9 || names[0] != "black_white" {
		t.Fatalf("unexpected filters %v", names)
	}
}

func TestMetricsHandlerCountsOperations(t *testing.T) {
	c := newTestController(t, &stubEngine{}, nil)
	ctx := context.Background()
	if _, err := c.Load(ctx, "/videos/source.mp4"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.Rotate(ctx, 90); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	rec := httptest.NewRecorder()
	c.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `goclip_operations_total{kind="rotate",outcome="success"} 1`) {
		t.Fatalf("rotate not counted:\n%s", body)
	}
}

func TestDetectUsesFFmpegPath(t *testing.T) {
	tmp := t.TempDir()
	script := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	c := newTestController(t, &stubEngine{}, func(o *Options) { o.FFmpegPath = script })
	report, err := c.Detect(context.Background())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if report.OK() || len(report.Missing()) != len(report.Capabilities) {
		t.Fatalf("empty listing should report everything missing: %+v", report)
	}
}
