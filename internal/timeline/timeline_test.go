package timeline

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/eleven-am/goclip/internal/domain"
)

func clip(name string) domain.Clip {
	return domain.Clip{ID: NewClipID(), Locator: name + ".mp4", Name: name}
}

func seeded(t *testing.T, n int) *Timeline {
	t.Helper()
	tl := New()
	first := tl.Load("source.mp4")
	prev := first.ID
	for i := 1; i < n; i++ {
		c := clip(string(rune('a' + i)))
		if err := tl.InsertAfter(prev, c); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
		prev = c.ID
	}
	return tl
}

func ids(clips []domain.Clip) []string {
	out := make([]string, len(clips))
	for i, c := range clips {
		out[i] = c.ID
	}
	return out
}

func selectedCount(clips []domain.Clip) int {
	n := 0
	for _, c := range clips {
		if c.Selected {
			n++
		}
	}
	return n
}

func TestLoadResetsToSingleSelectedClip(t *testing.T) {
	tl := seeded(t, 3)
	c := tl.Load("other.mp4")

	if tl.Len() != 1 {
		t.Fatalf("expected one clip after load, got %d", tl.Len())
	}
	if !c.Selected || c.Start != 0 || c.End != 0 || c.Name != InitialClipName {
		t.Fatalf("unexpected initial clip %+v", c)
	}
	if !strings.HasPrefix(c.ID, "clip_") {
		t.Fatalf("unexpected id %q", c.ID)
	}
	if sel, ok := tl.Selected(); !ok || sel.ID != c.ID {
		t.Fatalf("initial clip should be selected")
	}
}

func TestEmptyTimeline(t *testing.T) {
	tl := New()
	if _, ok := tl.Selected(); ok {
		t.Fatalf("empty timeline has no selection")
	}
	if tl.FinalLocator() != "" {
		t.Fatalf("empty timeline has no final locator")
	}
}

func TestReplaceKeepsLengthAndPosition(t *testing.T) {
	tl := seeded(t, 4)
	before := ids(tl.Clips())

	repl := clip("new")
	if err := tl.Replace(before[2], repl); err != nil {
		t.Fatalf("replace: %v", err)
	}

	after := tl.Clips()
	if len(after) != len(before) {
		t.Fatalf("replace changed length %d -> %d", len(before), len(after))
	}
	for i, id := range ids(after) {
		if i == 2 {
			if id != repl.ID {
				t.Fatalf("replacement not at index 2")
			}
			continue
		}
		if id != before[i] {
			t.Fatalf("slot %d moved", i)
		}
	}
	if !after[2].Selected || selectedCount(after) != 1 {
		t.Fatalf("replacement should be the single selected clip")
	}
}

func TestInsertAfterGrowsByOneAndKeepsOrder(t *testing.T) {
	for pos := 0; pos < 3; pos++ {
		tl := seeded(t, 3)
		before := ids(tl.Clips())

		ins := clip("ins")
		if err := tl.InsertAfter(before[pos], ins); err != nil {
			t.Fatalf("insert: %v", err)
		}

		after := ids(tl.Clips())
		if len(after) != len(before)+1 {
			t.Fatalf("insert should grow by one")
		}
		if after[pos+1] != ins.ID {
			t.Fatalf("inserted clip not directly after %d: %v", pos, after)
		}
		rest := append(append([]string{}, after[:pos+1]...), after[pos+2:]...)
		if !reflect.DeepEqual(rest, before) {
			t.Fatalf("relative order changed: %v vs %v", rest, before)
		}
	}
}

func TestInsertAfterKeepsSelectionOnSameClip(t *testing.T) {
	tl := seeded(t, 3)
	clips := tl.Clips()
	if err := tl.Select(clips[2].ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	if err := tl.InsertAfter(clips[0].ID, clip("x")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sel, ok := tl.Selected()
	if !ok || sel.ID != clips[2].ID {
		t.Fatalf("selection drifted to %+v", sel)
	}
	if selectedCount(tl.Clips()) != 1 {
		t.Fatalf("exactly one clip should be selected")
	}
}

func TestSplitShape(t *testing.T) {
	tl := New()
	orig := tl.Load("source.mp4")
	if err := tl.SetEnd(orig.ID, 10); err != nil {
		t.Fatalf("set end: %v", err)
	}

	first := domain.Clip{ID: NewClipID(), Locator: "p1.mp4", Start: 0, End: 4, Name: "Part 1"}
	second := domain.Clip{ID: NewClipID(), Locator: "p2.mp4", Start: 4, End: 10, Name: "Part 2"}
	if err := tl.Replace(orig.ID, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := tl.InsertAfter(first.ID, second); err != nil {
		t.Fatalf("insert: %v", err)
	}

	clips := tl.Clips()
	if len(clips) != 2 || clips[0].End != 4 || clips[1].Start != 4 || clips[1].End != 10 {
		t.Fatalf("unexpected split result %+v", clips)
	}
	if tl.FinalLocator() != "p2.mp4" {
		t.Fatalf("final locator should be the last clip")
	}
}

func TestUnknownAndDuplicateIDs(t *testing.T) {
	tl := seeded(t, 2)
	clips := tl.Clips()

	if err := tl.Select("nope"); !errors.Is(err, domain.ErrUnknownClip) {
		t.Fatalf("expected unknown clip, got %v", err)
	}
	if err := tl.Replace("nope", clip("x")); !errors.Is(err, domain.ErrUnknownClip) {
		t.Fatalf("expected unknown clip, got %v", err)
	}
	dup := clip("dup")
	dup.ID = clips[1].ID
	if err := tl.InsertAfter(clips[0].ID, dup); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("duplicate id should be rejected, got %v", err)
	}
	if err := tl.Replace(clips[0].ID, dup); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("duplicate id on replace should be rejected, got %v", err)
	}
	if tl.Len() != 2 {
		t.Fatalf("rejected mutations must not change the timeline")
	}
}

func TestClipsReturnsCopy(t *testing.T) {
	tl := seeded(t, 2)
	clips := tl.Clips()
	clips[0].Name = "mutated"
	if tl.Clips()[0].Name == "mutated" {
		t.Fatalf("Clips must not expose internal storage")
	}
}
