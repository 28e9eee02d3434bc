package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eleven-am/goclip/internal/domain"
)

const loadingLabel = "Loading video..."

type phrasing struct {
	progress string
	verb     string
	gerund   string
}

var phrases = map[domain.OpKind]phrasing{
	domain.OpCut:    {"Cutting video...", "cut video", "cutting video"},
	domain.OpSplit:  {"Splitting video...", "split video", "splitting video"},
	domain.OpSpeed:  {"Adjusting speed...", "adjust speed", "adjusting speed"},
	domain.OpRotate: {"Rotating video...", "rotate video", "rotating video"},
	domain.OpFilter: {"Applying filter...", "apply filter", "applying filter"},
	domain.OpText:   {"Adding text...", "add text", "adding text"},
	domain.OpAudio:  {"Adding audio...", "add audio", "adding audio"},
	domain.OpCrop:   {"Cropping video...", "crop video", "cropping video"},
}

func progressLabel(kind domain.OpKind) string {
	return phrases[kind].progress
}

// failureMessage renders the user-facing message for a failed operation.
func failureMessage(kind domain.OpKind, err error) string {
	p := phrases[kind]
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return "Timed out " + p.gerund
	case errors.Is(err, domain.ErrEngineFailure):
		return "Failed to " + p.verb
	default:
		return "Error " + p.gerund + ": " + cause(err)
	}
}

// classify turns an engine outcome into one of the session error kinds.
func classify(kind domain.OpKind, res domain.Result, err error) error {
	switch {
	case err == nil && res.Success:
		return nil
	case err == nil:
		return &domain.OpError{Op: kind, Err: domain.ErrEngineFailure}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.OpError{Op: kind, Err: fmt.Errorf("%w: %v", domain.ErrTimeout, err)}
	default:
		return &domain.OpError{Op: kind, Err: fmt.Errorf("%w: %v", domain.ErrEngineException, err)}
	}
}

// cause strips the sentinel prefixes so the message shows what went wrong.
func cause(err error) string {
	var opErr *domain.OpError
	if errors.As(err, &opErr) {
		err = opErr.Err
	}
	msg := err.Error()
	return strings.TrimPrefix(msg, domain.ErrEngineException.Error()+": ")
}

func clipName(kind domain.OpKind, req domain.Request, count int) string {
	switch kind {
	case domain.OpCut:
		return fmt.Sprintf("Cut %d", count)
	case domain.OpSpeed:
		return "Speed " + formatMultiplier(req.Multiplier) + "x"
	case domain.OpRotate:
		return "Rotated"
	case domain.OpFilter:
		return "Filtered"
	case domain.OpText:
		return "With Text"
	case domain.OpAudio:
		return "With Audio"
	case domain.OpCrop:
		return "Cropped"
	}
	return string(kind)
}

func formatMultiplier(m float64) string {
	s := strconv.FormatFloat(m, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
