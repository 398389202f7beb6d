package chunkset

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// LabelKey orders labels numerically: "3-2" sorts before "3-11".
type LabelKey struct {
	Major, Minor int
}

// sentinelKey sorts after every parseable label.
var sentinelKey = LabelKey{math.MaxInt, math.MaxInt}

var labelKeyRe = regexp.MustCompile(`^(\d+)-(\d+)$`)

// NormalizeLabel folds dash variants to '-' and trims whitespace.
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("–", "-", "—", "-", "‐", "-", "−", "-").Replace(s)
	return strings.Join(strings.Fields(s), "")
}

// ParseLabelKey parses "<major>-<minor>". Anything else is unparseable.
func ParseLabelKey(label string) (LabelKey, bool) {
	m := labelKeyRe.FindStringSubmatch(NormalizeLabel(label))
	if m == nil {
		return sentinelKey, false
	}
	major, err1 := strconv.Atoi(m[1])
	minor, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return sentinelKey, false
	}
	return LabelKey{major, minor}, true
}

// Less orders keys by major then minor.
func (k LabelKey) Less(o LabelKey) bool {
	if k.Major != o.Major {
		return k.Major < o.Major
	}
	return k.Minor < o.Minor
}

// SortRegions sorts rs in place by label key. Equal keys, including all
// unparseable labels, keep their discovery order.
func SortRegions(rs []Region) []Region {
	sort.SliceStable(rs, func(i, j int) bool {
		ki, _ := ParseLabelKey(rs[i].Label)
		kj, _ := ParseLabelKey(rs[j].Label)
		return ki.Less(kj)
	})
	return rs
}

// NormalizeTitle is the comparison form of a caption title: NFKC folded,
// whitespace collapsed, lower-cased.
func NormalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Dedup keeps the first region for every (label, normalized title) pair.
func Dedup(rs []Region) []Region {
	type key struct{ label, title string }
	seen := make(map[key]bool, len(rs))
	out := rs[:0]
	for _, r := range rs {
		k := key{NormalizeLabel(r.Label), NormalizeTitle(r.Title)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
