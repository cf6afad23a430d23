package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

const (
	colorAccent  = "#7C3AED"
	colorMuted   = "#6D7383"
	colorError   = "#EF4444"
	colorSuccess = "#22C55E"
	colorWarning = "#F59E0B"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))
	badgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color(colorAccent)).Padding(0, 1)
	tileStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(colorMuted)).Padding(0, 2)
	activeTile   = tileStyle.BorderForeground(lipgloss.Color(colorAccent))
)

var categoryStyles = map[tasks.Category]lipgloss.Style{
	tasks.Overdue: errorStyle,
	tasks.Today:   warningStyle,
	tasks.Next:    successStyle,
}

var categoryLabels = map[tasks.Category]string{
	tasks.Overdue: "Overdue",
	tasks.Today:   "Due today",
	tasks.Next:    "Upcoming",
}

// renderTiles draws the three count tiles side by side, highlighting the
// active filter.
func renderTiles(counts tasks.Counts, f tasks.Filter) string {
	tiles := make([]string, 0, len(tasks.Categories))
	for _, cat := range tasks.Categories {
		style := tileStyle
		if f.Category() == cat {
			style = activeTile
		}
		body := categoryStyles[cat].Render(fmt.Sprintf("%d", counts.Of(cat))) + "\n" + categoryLabels[cat]
		tiles = append(tiles, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func statusText(s store.Status) string {
	switch s {
	case store.StatusCompleted:
		return successStyle.Render(string(s))
	case store.StatusInProgress:
		return warningStyle.Render(string(s))
	}
	return mutedStyle.Render(string(s))
}

func onlineDot(online bool) string {
	if online {
		return successStyle.Render("●")
	}
	return mutedStyle.Render("○")
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func rule(n int) string { return mutedStyle.Render(strings.Repeat("─", n)) }
