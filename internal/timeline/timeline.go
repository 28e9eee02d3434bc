package timeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/eleven-am/goclip/internal/domain"
)

const InitialClipName = "Main Video"

func NewClipID() string {
	return "clip_" + uuid.New().String()
}

// Timeline is the ordered clip sequence of one session. It is not safe for
// concurrent use; the session serialises access.
type Timeline struct {
	clips    []domain.Clip
	selected int
}

func New() *Timeline {
	return &Timeline{selected: -1}
}

// Load resets the timeline to a single selected clip covering the whole
// source. End stays 0 until the duration is known.
func (t *Timeline) Load(locator string) domain.Clip {
	clip := domain.Clip{
		ID:       NewClipID(),
		Locator:  locator,
		Name:     InitialClipName,
		Selected: true,
	}
	t.clips = []domain.Clip{clip}
	t.selected = 0
	return clip
}

func (t *Timeline) Clear() {
	t.clips = nil
	t.selected = -1
}

func (t *Timeline) Len() int {
	return len(t.clips)
}

func (t *Timeline) Clips() []domain.Clip {
	out := make([]domain.Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

func (t *Timeline) Selected() (domain.Clip, bool) {
	if t.selected < 0 || t.selected >= len(t.clips) {
		return domain.Clip{}, false
	}
	return t.clips[t.selected], true
}

func (t *Timeline) Select(id string) error {
	idx := t.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownClip, id)
	}
	t.setSelected(idx)
	return nil
}

// Replace puts clip into the slot held by id, keeping position and count,
// and selects it.
func (t *Timeline) Replace(id string, clip domain.Clip) error {
	idx := t.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownClip, id)
	}
	if err := t.checkFreshID(clip.ID, idx); err != nil {
		return err
	}
	t.clips[idx] = clip
	t.setSelected(idx)
	return nil
}

// InsertAfter places clip directly behind the slot held by id. Selection
// stays where it was.
func (t *Timeline) InsertAfter(id string, clip domain.Clip) error {
	idx := t.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownClip, id)
	}
	if err := t.checkFreshID(clip.ID, -1); err != nil {
		return err
	}
	clip.Selected = false

	t.clips = append(t.clips, domain.Clip{})
	copy(t.clips[idx+2:], t.clips[idx+1:])
	t.clips[idx+1] = clip

	if t.selected > idx {
		t.selected++
	}
	return nil
}

func (t *Timeline) SetEnd(id string, end float64) error {
	idx := t.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownClip, id)
	}
	t.clips[idx].End = end
	return nil
}

// FinalLocator is the locator of the last clip, the export source.
func (t *Timeline) FinalLocator() string {
	if len(t.clips) == 0 {
		return ""
	}
	return t.clips[len(t.clips)-1].Locator
}

func (t *Timeline) Locators() []string {
	out := make([]string, len(t.clips))
	for i, c := range t.clips {
		out[i] = c.Locator
	}
	return out
}

func (t *Timeline) indexOf(id string) int {
	for i, c := range t.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) checkFreshID(id string, except int) error {
	if id == "" {
		return domain.Invalid("clip id is empty")
	}
	for i, c := range t.clips {
		if i != except && c.ID == id {
			return domain.Invalid("clip id %s already on the timeline", id)
		}
	}
	return nil
}

func (t *Timeline) setSelected(idx int) {
	for i := range t.clips {
		t.clips[i].Selected = i == idx
	}
	t.selected = idx
}
