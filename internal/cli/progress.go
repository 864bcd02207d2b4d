package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders an in-place CLI progress bar for sync and
// migration runs.
type ProgressBar struct {
	completed int
	total     int
	ratio     float64
	label     string
	width     int
}

// NewProgressBar creates a new progress bar with the specified total and width.
func NewProgressBar(total int, width int) *ProgressBar {
	if width <= 0 {
		width = 15
	}
	return &ProgressBar{
		total: total,
		width: width,
	}
}

// Update sets the current progress and label.
func (p *ProgressBar) Update(completed int, label string) {
	p.completed = completed
	p.label = label
	if p.total > 0 {
		p.ratio = float64(completed) / float64(p.total)
	}
}

// UpdateRatio sets progress from a [0,1] ratio, for callers that report
// fractions rather than counts. The fill is driven by the ratio itself,
// so fractional progress shows even on a bar with a small total.
func (p *ProgressBar) UpdateRatio(ratio float64, label string) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	p.ratio = ratio
	p.completed = int(ratio * float64(p.total))
	p.label = label
}

// Render returns the formatted progress bar string.
func (p *ProgressBar) Render() string {
	if p.total == 0 {
		return ""
	}

	filled := int(float64(p.width) * p.ratio)
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	progressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	barStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	countStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B6B6B"))

	return progressStyle.Render("⚡ ") +
		barStyle.Render("["+bar+"]") +
		countStyle.Render(p.countText()) +
		progressStyle.Render(p.label)
}

// RenderMigrate returns a migration-themed progress bar (amber color).
func (p *ProgressBar) RenderMigrate() string {
	if p.total == 0 {
		return ""
	}

	filled := int(float64(p.width) * p.ratio)
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	migrateStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	barStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	countStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B6B6B"))

	return migrateStyle.Render("⇪ ") +
		barStyle.Render("["+bar+"]") +
		countStyle.Render(p.countText()) +
		migrateStyle.Render(p.label)
}

// countText formats the progress readout: a count for bars tracking
// discrete items, a percentage for ratio-driven bars.
func (p *ProgressBar) countText() string {
	if p.total > 1 {
		return fmt.Sprintf(" %d/%d ", p.completed, p.total)
	}
	return fmt.Sprintf(" %d%% ", int(p.ratio*100))
}

// ClearLine clears the current line for in-place progress updates.
func ClearLine() {
	fmt.Print("\r\033[K")
}
