package tui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Interactive reports whether out can host the live step table. The plain
// flag always wins; redirected output and dumb terminals get plain lines.
func Interactive(out io.Writer, plain bool) bool {
	if plain {
		return false
	}
	f, ok := out.(interface{ Fd() uintptr })
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return false
	}
	term := os.Getenv("TERM")
	return term != "" && !strings.EqualFold(term, "dumb")
}
