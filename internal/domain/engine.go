package domain

import "context"

// Result is what the engine reports for one invocation. A non-zero exit
// is Success=false with a nil error; the error return is reserved for
// failures to launch or talk to the engine at all.
type Result struct {
	Success bool
	Log     string
}

type Engine interface {
	Execute(ctx context.Context, args []string) (Result, error)
}

type Command struct {
	Kind   OpKind
	Args   []string
	Output string
}
