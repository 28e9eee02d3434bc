package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
	"github.com/eleven-am/goclip/internal/logging"
	"github.com/eleven-am/goclip/internal/metrics"
)

func installFakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestProcessCapturesLogOnSuccess(t *testing.T) {
	bin := installFakeFFmpeg(t, "#!/bin/sh\necho \"args: $*\" 1>&2\nexit 0\n")

	res, err := NewProcess(bin).Execute(context.Background(), []string{"-i", "in.mp4"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, log %q", res.Log)
	}
	if !strings.Contains(res.Log, "args: -i in.mp4") {
		t.Fatalf("stderr not captured: %q", res.Log)
	}
}

func TestProcessNonZeroExitIsFailureNotError(t *testing.T) {
	bin := installFakeFFmpeg(t, "#!/bin/sh\necho 'Invalid data found' 1>&2\nexit 1\n")

	res, err := NewProcess(bin).Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if res.Success || !strings.Contains(res.Log, "Invalid data") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProcessMissingBinaryIsError(t *testing.T) {
	_, err := NewProcess(filepath.Join(t.TempDir(), "nope")).Execute(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected launch error")
	}
}

func TestProcessDeadline(t *testing.T) {
	bin := installFakeFFmpeg(t, "#!/bin/sh\nexec sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewProcess(bin).Execute(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("execute did not return promptly")
	}
}

func TestProcessClosedRefusesWork(t *testing.T) {
	bin := installFakeFFmpeg(t, "#!/bin/sh\nexit 0\n")
	p := NewProcess(bin)
	p.Close()

	if _, err := p.Execute(context.Background(), nil); err == nil {
		t.Fatalf("closed engine should refuse new invocations")
	}
}

type stubEngine struct {
	res domain.Result
	err error
}

func (s stubEngine) Execute(context.Context, []string) (domain.Result, error) {
	return s.res, s.err
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		res  domain.Result
		err  error
		want string
	}{
		{domain.Result{Success: true}, nil, "success"},
		{domain.Result{}, nil, "failure"},
		{domain.Result{}, context.DeadlineExceeded, "timeout"},
		{domain.Result{}, context.Canceled, "canceled"},
		{domain.Result{}, errors.New("boom"), "error"},
	}
	for _, c := range cases {
		if got := Outcome(c.res, c.err); got != c.want {
			t.Fatalf("Outcome(%+v, %v) = %s, want %s", c.res, c.err, got, c.want)
		}
	}
}

func TestInstrumentPassesThrough(t *testing.T) {
	m := metrics.New()
	boom := errors.New("boom")
	e := Instrument(stubEngine{err: boom}, m, logging.Discard())

	if _, err := e.Execute(context.Background(), []string{"-i", "x"}); !errors.Is(err, boom) {
		t.Fatalf("error should pass through, got %v", err)
	}

	ok := Instrument(stubEngine{res: domain.Result{Success: true, Log: "done"}}, m, logging.Discard())
	res, err := ok.Execute(context.Background(), nil)
	if err != nil || !res.Success || res.Log != "done" {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
}

const fakeDetectScript = `#!/bin/sh
if [ "$2" = "-filters" ]; then
cat <<'EOF'
Filters:
  T.. = Timeline support
  .S. = Slice threading
 ... amix              N->A       Audio mixing.
 ... atempo            A->A       Adjust audio tempo.
 T.. colortemperature  V->V       Adjust color temperature of video.
 ... concat            N->N       Concatenate audio and video streams.
 TSC crop              V->V       Crop the input video.
 T.. drawtext          V->V       Draw text on top of video frames.
 TSC eq                V->V       Adjust brightness, contrast, gamma, and saturation.
 ... scale             V->V       Scale the input video size.
 ... setpts            V->V       Set PTS for the output video frame.
 .S. transpose         V->V       Transpose input video.
 T.C volume            A->A       Change input volume.
 TSC curves            V->V       Adjust components curves.
 TSC hue               V->V       Adjust the hue and saturation of the input video.
 TSC colorchannelmixer V->V       Adjust colors by mixing color channels.
