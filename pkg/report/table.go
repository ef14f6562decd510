// Package report renders mining results: console tables, the significant
// path CSVs the outcome analysis produces, and XLSX workbooks.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// HLEStatistics renders the high-level event statistics table: per feature
// type the event count and share, the number of distinct entities, and the
// most frequent entity.
func HLEStatistics(hles map[hlem.EventID]hlem.HighLevelEvent) string {
	type featStats struct {
		count    int
		entities map[hlem.Entity]int
	}
	byFeature := make(map[hlem.Feature]*featStats)
	total := 0
	for id := range hles {
		fs, ok := byFeature[id.Feature]
		if !ok {
			fs = &featStats{entities: make(map[hlem.Entity]int)}
			byFeature[id.Feature] = fs
		}
		fs.count++
		fs.entities[id.Entity]++
		total++
	}

	features := make([]hlem.Feature, 0, len(byFeature))
	for f := range byFeature {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].String() < features[j].String()
	})

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("HIGH-LEVEL EVENT STATISTICS"))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("%-12s %-16s %-18s %s",
		"Feature", "Count (%)", "Distinct Entities", "Most Frequent Entity")))
	sb.WriteString("\n")

	for _, f := range features {
		fs := byFeature[f]
		var top hlem.Entity
		topCount := -1
		for e, n := range fs.entities {
			if n > topCount || (n == topCount && e.String() < top.String()) {
				top, topCount = e, n
			}
		}
		pct := 0.0
		if total > 0 {
			pct = float64(fs.count) / float64(total) * 100
		}
		sb.WriteString(fmt.Sprintf("%-12s %-16s %-18d %s (n=%d)\n",
			f.String(),
			fmt.Sprintf("%d (%.2f%%)", fs.count, pct),
			len(fs.entities),
			top.String(), topCount))
	}

	sb.WriteString(mutedStyle.Render(fmt.Sprintf("TOTAL        %d", total)))
	return sb.String()
}

// RunSummary renders the one-screen result of a mining run.
func RunSummary(cases, events, hleCount, pathCount, significant int) string {
	var sb strings.Builder
	sb.WriteString(accentStyle.Render("▸ MINING COMPLETE"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s %d cases, %d events\n", mutedStyle.Render("log:"), cases, events))
	sb.WriteString(fmt.Sprintf("  %s %d high-level events\n", mutedStyle.Render("hle:"), hleCount))
	sb.WriteString(fmt.Sprintf("  %s %d retained paths\n", mutedStyle.Render("paths:"), pathCount))
	if significant > 0 {
		sb.WriteString("  " + successStyle.Render(fmt.Sprintf("✓ %d statistically significant paths", significant)))
	} else {
		sb.WriteString("  " + mutedStyle.Render("no statistically significant paths found"))
	}
	return sb.String()
}
