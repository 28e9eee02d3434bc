package tui

// StepUpdateMsg updates a single step's fields by column name.
type StepUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// ExportProgressMsg carries the export checkpoint, 0 to 100.
type ExportProgressMsg struct {
	Percent int
	Output  string
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
