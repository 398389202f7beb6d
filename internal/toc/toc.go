// Package toc recognizes table-of-contents pages so their label listings are
// not mistaken for real captions.
package toc

import (
	"regexp"
	"strings"
)

type Options struct {
	HeadChars     int // runes of page text inspected
	HeadLines     int // lines of that head checked for label listings
	MinLabelLines int // label-prefixed lines needed to classify by density
}

func DefaultOptions() Options {
	return Options{HeadChars: 1000, HeadLines: 50, MinLabelLines: 5}
}

var (
	keywordRe   = regexp.MustCompile(`목\s*차|표\s*목차|그림\s*목차|(?mi:^\s*(table\s+of\s+)?contents\s*$)`)
	labelLineRe = regexp.MustCompile(`^\s*(표|그림)\s*\d+\s*[-–]\s*\d+`)
)

// IsTOC reports whether the page text looks like a table of contents: a TOC
// heading near the top, or many lines starting with a table/figure label.
func IsTOC(text string, opts Options) bool {
	if opts.HeadChars <= 0 {
		opts = DefaultOptions()
	}
	head := text
	if r := []rune(text); len(r) > opts.HeadChars {
		head = string(r[:opts.HeadChars])
	}
	if keywordRe.MatchString(head) {
		return true
	}

	lines := strings.Split(head, "\n")
	if len(lines) > opts.HeadLines {
		lines = lines[:opts.HeadLines]
	}
	hits := 0
	for _, ln := range lines {
		if labelLineRe.MatchString(ln) {
			hits++
			if hits >= opts.MinLabelLines {
				return true
			}
		}
	}
	return false
}
