package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/eleven-am/goclip/internal/domain"
)

const (
	DefaultBinary = "ffmpeg"

	// waitDelay bounds how long a killed invocation may keep its output
	// pipes open through orphaned children.
	waitDelay = 2 * time.Second
)

// Process runs the ffmpeg binary once per Execute call, returning the
// combined stdout/stderr as the log.
type Process struct {
	binary string

	mu      sync.Mutex
	nextID  int
	running map[int]context.CancelFunc
	closed  bool
}

func NewProcess(binary string) *Process {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Process{
		binary:  binary,
		running: make(map[int]context.CancelFunc),
	}
}

func (p *Process) Binary() string {
	return p.binary
}

func (p *Process) Execute(ctx context.Context, args []string) (domain.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id, err := p.track(cancel)
	if err != nil {
		return domain.Result{}, err
	}
	defer p.untrack(id)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	runErr := cmd.Run()
	res := domain.Result{Success: runErr == nil, Log: out.String()}
	if runErr == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", p.binary, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, nil
	}

	return res, fmt.Errorf("%s: %w", p.binary, runErr)
}

// Close kills every invocation still running and refuses new ones.
func (p *Process) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for id, cancel := range p.running {
		cancel()
		delete(p.running, id)
	}
}

func (p *Process) track(cancel context.CancelFunc) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, fmt.Errorf("%s: engine closed", p.binary)
	}
	id := p.nextID
	p.nextID++
	p.running[id] = cancel
	return id, nil
}

func (p *Process) untrack(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, id)
}

var _ domain.Engine = (*Process)(nil)
