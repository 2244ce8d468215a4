package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/pipeline"
)

func goldenLayout() layout.Result {
	return layout.Result{
		Strategy: layout.StrategySkyline,
		Unit:     layout.UnitCell,
		Columns:  6,
		Tiles: []layout.PositionedTile{
			{Column: 0, Row: 0, ColumnSpan: 2, RowSpan: 2},
			{Column: 2, Row: 0, ColumnSpan: 1, RowSpan: 1},
			{Column: 3, Row: 0, ColumnSpan: 1, RowSpan: 1},
		},
	}
}

func TestWatchModelUpdates(t *testing.T) {
	m := NewWatchModel("w1")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if !strings.Contains(m.View(), "waiting") {
		t.Errorf("empty view should say it is waiting:\n%s", m.View())
	}

	res := &pipeline.Result{Layout: goldenLayout()}
	next, _ := m.Update(updateMsg{Seq: 1, Result: res, At: now})
	m = next.(WatchModel)
	if m.Latest != res {
		t.Fatal("Latest not set from a successful update")
	}

	next, _ = m.Update(updateMsg{Seq: 2, Err: errors.New("store down"), Coalesced: 3, At: now})
	m = next.(WatchModel)
	if m.Latest != res {
		t.Error("a failed update replaced the last good layout")
	}

	view := m.View()
	for _, want := range []string{"Watching wall w1", "#1", "#2", "store down", "initial"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModelHistoryIsBounded(t *testing.T) {
	var m tea.Model = NewWatchModel("w1")
	for i := 1; i <= watchHistory+5; i++ {
		m, _ = m.Update(updateMsg{Seq: i, Result: &pipeline.Result{Layout: goldenLayout()}})
	}
	wm := m.(WatchModel)
	if len(wm.Updates) != watchHistory {
		t.Fatalf("kept %d updates, want %d", len(wm.Updates), watchHistory)
	}
	if wm.Updates[0].Seq != 6 || wm.Updates[watchHistory-1].Seq != watchHistory+5 {
		t.Errorf("kept seqs %d..%d", wm.Updates[0].Seq, wm.Updates[watchHistory-1].Seq)
	}
}

func TestWatchModelQuit(t *testing.T) {
	for _, key := range []string{"q", "esc"} {
		var msg tea.KeyMsg
		if key == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		m, cmd := NewWatchModel("w1").Update(msg)
		if !m.(WatchModel).Quit {
			t.Errorf("%s: Quit not set", key)
		}
		if cmd == nil {
			t.Errorf("%s: no quit command", key)
		}
	}
}

func TestRenderPreview(t *testing.T) {
	got := stripANSI(renderPreview(goldenLayout(), 80, 10))
	want := "  a a b c . .\n  a a . . . ."
	if got != want {
		t.Errorf("preview:\n%q\nwant:\n%q", got, want)
	}

	t.Run("cut rows", func(t *testing.T) {
		got := stripANSI(renderPreview(goldenLayout(), 80, 1))
		if !strings.HasPrefix(got, "  a a b c . .\n") || !strings.Contains(got, "1 more rows") {
			t.Errorf("preview:\n%s", got)
		}
	})

	t.Run("pixel layout", func(t *testing.T) {
		res := layout.Result{Strategy: layout.StrategyMasonry, Unit: layout.UnitPixel}
		if got := stripANSI(renderPreview(res, 80, 10)); !strings.Contains(got, "masonry layout") {
			t.Errorf("preview: %s", got)
		}
	})
}

// stripANSI removes terminal escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
