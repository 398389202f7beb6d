package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// firstTable parses src and returns its first GFM table node.
func firstTable(src []byte) *extast.Table {
	doc := md.Parser().Parse(text.NewReader(src))
	var table *extast.Table
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*extast.Table); ok {
			table = t
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return table
}

// Rows returns the cell text of the first table in markdown, header first.
// It returns nil when there is no table.
func Rows(markdown string) [][]string {
	src := []byte(markdown)
	table := firstTable(src)
	if table == nil {
		return nil
	}
	var rows [][]string
	for r := table.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, cellText(c, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

func cellText(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// Shape reports the row count (header included) and column count of the
// first table, and whether it parsed as a well-formed table.
func Shape(markdown string) (rows, cols int, ok bool) {
	table := firstTable([]byte(markdown))
	if table == nil {
		return 0, 0, false
	}
	for r := table.FirstChild(); r != nil; r = r.NextSibling() {
		n := r.ChildCount()
		if rows == 0 {
			cols = n
		}
		if n != cols {
			return 0, 0, false
		}
		rows++
	}
	return rows, cols, cols > 0
}

// Valid reports whether markdown is a table with at least minRows rows
// and minCols columns.
func Valid(markdown string, minRows, minCols int) bool {
	rows, cols, ok := Shape(markdown)
	return ok && rows >= minRows && cols >= minCols
}

// HTML renders markdown to HTML.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
