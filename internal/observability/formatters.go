// Package observability provides console progress output and diagnostic logging for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/env-validator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles progress lines and formatted summaries
type Printer struct {
	out    io.Writer
	styles styles
}

// NewPrinter creates a new Printer that writes to the given writer.
// Colours are only emitted when the writer is a terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

type countEntry struct {
	key   string
	count int
}

// sortedCounts orders counts descending, ties broken by key.
func sortedCounts(counts map[string]int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, countEntry{key: k, count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

// PrintIssueSummary outputs issue counts grouped by issue type and the most affected elements.
func (p *Printer) PrintIssueSummary(records []types.ExportRecord) {
	if len(records) == 0 {
		return
	}

	byType := make(map[string]int)
	byElement := make(map[string]int)
	items := make(map[string]struct{})
	for _, rec := range records {
		byType[rec.IssueType]++
		byElement[rec.Element]++
		items[rec.Item+"/"+rec.Language] = struct{}{}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Issues:    %d\n", len(records)))
	sb.WriteString(fmt.Sprintf("Variants:  %d\n", len(items)))
	sb.WriteString("\n")

	sb.WriteString("By issue type:\n")
	for _, e := range sortedCounts(byType) {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", e.key, e.count))
	}
	sb.WriteString("\n")

	elements := sortedCounts(byElement)
	sb.WriteString("Top elements:\n")
	count := min(len(elements), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", elements[i].key, elements[i].count))
	}
	if len(elements) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(elements)-maxItemsToShow))
	}

	p.printBox("VALIDATION ISSUES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStepTimings outputs how long each stage of the run took.
func (p *Printer) PrintStepTimings(steps []types.StepTiming) {
	if len(steps) == 0 {
		return
	}

	var sb strings.Builder
	var total int64
	for _, s := range steps {
		total += s.DurationMs
		line := fmt.Sprintf("%-12s %8d ms", s.Step, s.DurationMs)
		if s.Failed() {
			line += "  FAILED"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("%-12s %8d ms", "total", total))

	p.printBox("RUN STEPS", sb.String())
}
