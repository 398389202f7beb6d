// Package preview builds rough Markdown table previews from region text and
// checks them with goldmark's GFM table parser.
package preview

import (
	"regexp"
	"strings"
)

type Options struct {
	MinLines   int
	MaxRows    int
	MinColumns int
}

func DefaultOptions() Options {
	return Options{MinLines: 3, MaxRows: 12, MinColumns: 2}
}

var (
	cellSplitRe     = regexp.MustCompile(`\s{2,}|\t+|, `)
	fallbackSplitRe = regexp.MustCompile(`\s*[,:;]\s+|\s+-\s+`)
)

// RoughMarkdown turns whitespace-aligned text into a Markdown table. It
// returns "" when the text has fewer than MinLines non-empty lines or fewer
// than MinColumns columns.
func RoughMarkdown(text string, opts Options) string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) < opts.MinLines {
		return ""
	}
	if opts.MaxRows > 0 && len(lines) > opts.MaxRows {
		lines = lines[:opts.MaxRows]
	}

	rows := make([][]string, 0, len(lines))
	cols := 0
	for _, ln := range lines {
		cells := splitCells(ln)
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, cells)
	}
	if cols < opts.MinColumns {
		return ""
	}

	var sb strings.Builder
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, "")
		}
		sb.WriteString("| ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString(" |\n")
		if i == 0 {
			sb.WriteString("|")
			sb.WriteString(strings.Repeat(" --- |", cols))
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func splitCells(line string) []string {
	parts := nonEmpty(cellSplitRe.Split(line, -1))
	if len(parts) < 2 {
		if alt := nonEmpty(fallbackSplitRe.Split(line, -1)); len(alt) > len(parts) {
			parts = alt
		}
	}
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "|", `\|`)
	}
	return parts
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
