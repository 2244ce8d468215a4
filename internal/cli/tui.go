package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// watchHistory is the number of updates kept in the watch table.
const watchHistory = 8

// previewGlyphs label the tiles of the grid preview, newest first.
const previewGlyphs = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// =============================================================================
// WatchModel - Live layout view
// =============================================================================

// updateMsg delivers a pipeline update to the watch view.
type updateMsg pipeline.Update

// WatchModel is the bubbletea model for "memorywall watch".
type WatchModel struct {
	WallID  string
	Updates []pipeline.Update // newest last
	Latest  *pipeline.Result
	Width   int
	Height  int

	// Quit is set once the user asked to leave.
	Quit bool
	now  func() time.Time
}

// NewWatchModel creates a watch view for a wall.
func NewWatchModel(wallID string) WatchModel {
	return WatchModel{WallID: wallID, Width: 80, Height: 24, now: time.Now}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quit = true
			return m, tea.Quit
		}
	case updateMsg:
		u := pipeline.Update(msg)
		m.Updates = append(m.Updates, u)
		if len(m.Updates) > watchHistory {
			m.Updates = m.Updates[len(m.Updates)-watchHistory:]
		}
		if u.Err == nil && u.Result != nil {
			m.Latest = u.Result
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching wall " + m.WallID))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("relayouts on every new tile  q quit"))
	b.WriteString("\n\n")

	if len(m.Updates) == 0 {
		b.WriteString(listDimStyle.Render("  waiting for the first layout..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderUpdates())
	b.WriteString("\n")

	if m.Latest != nil {
		b.WriteString("\n")
		b.WriteString(renderPreview(m.Latest.Layout, m.Width-4, m.previewRows()))
	}
	return b.String()
}

func (m WatchModel) renderUpdates() string {
	rows := make([][]string, 0, len(m.Updates))
	for _, u := range m.Updates {
		status, tiles, cols, events := "ok", "—", "—", "initial"
		if u.Coalesced > 0 {
			events = fmt.Sprintf("%d", u.Coalesced)
		}
		if u.Err != nil {
			status = u.Err.Error()
		} else if u.Result != nil {
			tiles = fmt.Sprintf("%d", len(u.Result.Layout.Tiles))
			cols = fmt.Sprintf("%d", u.Result.Layout.Columns)
			status = fmt.Sprintf("ok (%s)", u.Result.Stats.LayoutTime.Round(time.Microsecond))
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", u.Seq), tiles, cols, events, m.formatAgo(u.At), status,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Seq", "Tiles", "Columns", "Events", "When", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row < len(m.Updates) && m.Updates[row].Err != nil && col == 5:
				return listErrorStyle
			case row == last:
				return listSelectedStyle
			default:
				return listNormalStyle
			}
		})
	return t.Render()
}

// previewRows is the grid height left below the update table.
func (m WatchModel) previewRows() int {
	return max(4, m.Height-len(m.Updates)-10)
}

func (m WatchModel) formatAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := m.now().Sub(t)
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return t.Format("15:04:05")
	}
}

// =============================================================================
// Grid Preview
// =============================================================================

// renderPreview draws a cell layout as characters, one per cell, labelling
// each tile with a glyph. Rows beyond maxRows are cut off. Pixel layouts are
// summarized instead.
func renderPreview(res layout.Result, maxWidth, maxRows int) string {
	if res.Unit != layout.UnitCell {
		return listDimStyle.Render(fmt.Sprintf("  %s layout: %d tiles, %dpx tall", res.Strategy, len(res.Tiles), res.Height()))
	}
	if res.Columns == 0 || len(res.Tiles) == 0 {
		return listDimStyle.Render("  empty wall")
	}

	// Two characters per cell.
	cols := res.Columns
	if maxWidth > 0 && cols*2 > maxWidth {
		cols = max(1, maxWidth/2)
	}
	rows := min(res.Height(), maxRows)

	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(".", cols))
	}
	for i, t := range res.Tiles {
		glyph := previewGlyphs[i%len(previewGlyphs)]
		for r := t.Row; r < t.Bottom() && r < rows; r++ {
			for c := t.Column; c < t.Right() && c < cols; c++ {
				grid[r][c] = glyph
			}
		}
	}

	var b strings.Builder
	for r, line := range grid {
		b.WriteString("  ")
		for c, ch := range line {
			if c > 0 {
				b.WriteByte(' ')
			}
			if ch == '.' {
				b.WriteString(listDimStyle.Render("."))
			} else {
				b.WriteString(StyleHighlight.Render(string(ch)))
			}
		}
		if r < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	if hidden := res.Height() - rows; hidden > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  … %d more rows", hidden)))
	}
	return b.String()
}
