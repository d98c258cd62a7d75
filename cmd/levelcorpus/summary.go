package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"levelcorpus/internal/config"
	"levelcorpus/internal/export"
	"levelcorpus/internal/manifest"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#7a8494")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(10)
	failStyle  = lipgloss.NewStyle().Foreground(destructive)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

func kv(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderSummary formats the result of one export.
func renderSummary(res *export.Result) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Exported %d levels", res.Levels)),
		kv("levels", res.OutputDir),
		kv("csv", res.CSVPath),
		kv("fitness", res.FitnessPath),
		kv("took", res.Duration.Round(time.Millisecond).String()),
	)
	return boxStyle.Render(body)
}

// renderRuns formats the manifest run list.
func renderRuns(runs []manifest.RunInfo) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Export runs"))
	b.WriteString("\n")
	for _, r := range runs {
		status := r.Status
		if status == manifest.StatusFailed {
			status = failStyle.Render(status)
		}
		fmt.Fprintf(&b, "%s  %s  %-9s %5d levels  %s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), status, r.Levels, r.CorpusPath)
		if r.Error != "" {
			fmt.Fprintf(&b, "    %s\n", failStyle.Render(r.Error))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderLevels formats the levels of one run. scores may be nil.
func renderLevels(levels []manifest.LevelInfo, scores map[string]float64) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d levels", len(levels))))
	b.WriteString("\n")
	for _, l := range levels {
		score := "-"
		if v, ok := scores[l.Filename]; ok {
			score = fmt.Sprintf("%g", v)
		}
		fmt.Fprintf(&b, "%-16s leniency=%-6s density=%-6s %3dx%-3d fitness=%s\n",
			l.Filename, l.Leniency, l.Density, l.Width, l.Rows, score)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderConfig formats the resolved configuration.
func renderConfig(cfg *config.Config) string {
	manifestPath := cfg.Manifest.Path
	if manifestPath == "" {
		manifestPath = "(disabled)"
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Configuration"),
		kv("corpus", cfg.Paths.Corpus),
		kv("levels", cfg.Paths.OutputDir),
		kv("csv", cfg.Paths.CSV),
		kv("fitness", cfg.Paths.Fitness),
		kv("border", fmt.Sprint(cfg.Export.Border)),
		kv("manifest", manifestPath),
		kv("log", cfg.Logging.Level),
	))
}
