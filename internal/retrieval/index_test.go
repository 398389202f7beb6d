package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/hilens/internal/chunkset"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// keywordBackend embeds texts on one axis per keyword they contain.
type keywordBackend struct {
	words []string
	fail  bool
}

func (k keywordBackend) Name() string    { return "keyword" }
func (k keywordBackend) Dimensions() int { return len(k.words) }

func (k keywordBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if k.fail {
		return nil, errors.New("backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.words))
		for j, w := range k.words {
			if strings.Contains(t, w) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func fuelChunkSet() *chunkset.ChunkSet {
	cs := chunkset.New()
	cs.Texts = []chunkset.PageText{
		{Page: 1, Text: "표 목차\n표 3-1 2023 연료비 현황 ..... 12\n표 3-2 설비 용량 ..... 13", IsTOC: true},
		{Page: 2, Text: "표 3-1 연료비 현황\n구분 2023 2022\n석탄 12.5 11.0"},
		{Page: 3, Text: "표 3-2 설비 용량\n구분 용량\n원자력 24.6"},
	}
	cs.Tables = []chunkset.Region{
		{Type: chunkset.KindTable, Label: "3-1", Title: "연료비 현황", Caption: "표 3-1 연료비 현황", Page: 2,
			PreviewMD: "| 구분 | 2023 |\n| --- | --- |\n| 석탄 | 12.5 |", Text: "구분 2023 2022 석탄 12.5 11.0"},
		{Type: chunkset.KindTable, Label: "3-2", Title: "설비 용량", Caption: "표 3-2 설비 용량", Page: 3,
			Text: "구분 용량 원자력 24.6"},
	}
	return cs
}

func mustBuild(t *testing.T, cs *chunkset.ChunkSet, b EmbeddingBackend) *Index {
	t.Helper()
	ix, err := Build(context.Background(), cs, b, DefaultOptions(), testLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ix
}

func TestSearchTables_PrefersNonTOC(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), nil)
	hits, err := ix.SearchTables(context.Background(), "2023년 연료비", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected one hit, got %d", len(hits))
	}
	if hits[0].IsTOC || hits[0].PageLabel != 2 || hits[0].Label != "3-1" {
		t.Errorf("expected table 3-1 on page 2, got %+v", hits[0])
	}
}

func TestSearchTables_TOCFallback(t *testing.T) {
	cs := chunkset.New()
	cs.Texts = []chunkset.PageText{{Page: 1, Text: "목차\n표 1-1 연료비 ..... 3", IsTOC: true}}
	ix := mustBuild(t, cs, nil)
	hits, err := ix.SearchTables(context.Background(), "연료비", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || !hits[0].IsTOC || hits[0].TableIndex != 0 {
		t.Errorf("expected the TOC pseudo-table as fallback, got %+v", hits)
	}
}

func TestSearchTables_Deterministic(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), keywordBackend{words: []string{"연료비", "설비", "2023"}})
	first, _ := ix.SearchTables(context.Background(), "설비 용량 2023", 4)
	for i := 0; i < 5; i++ {
		again, _ := ix.SearchTables(context.Background(), "설비 용량 2023", 4)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestSearchTables_DedupsBySource(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), nil)
	hits, _ := ix.SearchTables(context.Background(), "연료비 석탄", 10)
	seen := map[[2]int]map[Source]bool{}
	for _, h := range hits {
		k := [2]int{h.PageIndex, h.TableIndex}
		if seen[k] == nil {
			seen[k] = map[Source]bool{}
		}
		if seen[k][h.Source] {
			t.Errorf("duplicate hit %+v", h)
		}
		seen[k][h.Source] = true
	}
	if !seen[[2]int{1, 0}][SourceShort] || !seen[[2]int{1, 0}][SourceFull] {
		t.Errorf("expected short and full hits for table 3-1, got %+v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted by score: %+v", hits)
		}
	}
}

func TestSearchTables_FusesDenseScores(t *testing.T) {
	cs := chunkset.New()
	cs.Tables = []chunkset.Region{
		{Type: chunkset.KindTable, Label: "1-1", Caption: "표 1-1 발전 현황", Page: 1},
		{Type: chunkset.KindTable, Label: "1-2", Caption: "표 1-2 발전 현황 석탄", Page: 2},
	}
	ix := mustBuild(t, cs, keywordBackend{words: []string{"석탄"}})
	hits, _ := ix.SearchTables(context.Background(), "석탄", 1)
	if len(hits) != 1 || hits[0].Label != "1-2" {
		t.Errorf("expected table 1-2, got %+v", hits)
	}
}

func TestSearchTables_EmbeddingFailureDegrades(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), keywordBackend{fail: true})
	hits, err := ix.SearchTables(context.Background(), "연료비", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Label != "3-1" {
		t.Errorf("expected lexical hit for 3-1, got %+v", hits)
	}
}

func TestSearchTables_EmptyCorpus(t *testing.T) {
	ix := mustBuild(t, chunkset.New(), nil)
	hits, err := ix.SearchTables(context.Background(), "연료비", 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits and no error, got %v, %v", hits, err)
	}
}

func TestSearchTables_DefaultK(t *testing.T) {
	cs := chunkset.New()
	for i := 1; i <= 8; i++ {
		cs.Tables = append(cs.Tables, chunkset.Region{Type: chunkset.KindTable, Label: "1-1", Caption: "표 발전량", Page: i})
	}
	ix := mustBuild(t, cs, nil)
	hits, _ := ix.SearchTables(context.Background(), "발전량", 0)
	if len(hits) != DefaultOptions().DefaultK {
		t.Errorf("expected %d hits, got %d", DefaultOptions().DefaultK, len(hits))
	}
}

func TestSearchPages(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), nil)
	hits, err := ix.SearchPages(context.Background(), "원자력", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].PageLabel != 3 || hits[0].Source != SourcePage {
		t.Errorf("expected page 3, got %+v", hits)
	}
}

func TestSplitRunes(t *testing.T) {
	s := strings.Repeat("가", 2500)
	parts := SplitRunes(s, 1200, 150)
	want := []int{1200, 1200, 400}
	if len(parts) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(parts))
	}
	for i, p := range parts {
		if n := len([]rune(p)); n != want[i] {
			t.Errorf("window %d: expected %d runes, got %d", i, want[i], n)
		}
	}
	if got := SplitRunes("짧은 페이지", 1200, 150); len(got) != 1 || got[0] != "짧은 페이지" {
		t.Errorf("expected short text kept whole, got %q", got)
	}
	if got := SplitRunes(s, 0, 150); len(got) != 1 {
		t.Errorf("expected chunking off for size 0, got %d windows", len(got))
	}

	overlap := SplitRunes("abcdefghij", 4, 1)
	if !reflect.DeepEqual(overlap, []string{"abcd", "defg", "ghij"}) {
		t.Errorf("unexpected windows %q", overlap)
	}
}

func TestSearchPages_LongPageIsChunked(t *testing.T) {
	cs := fuelChunkSet()
	cs.Texts = append(cs.Texts, chunkset.PageText{Page: 4, Text: strings.Repeat("개요 ", 600) + "원자력 설비 24.6"})
	ix := mustBuild(t, cs, nil)
	hits, err := ix.SearchPages(context.Background(), "원자력", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected pages 3 and 4, got %+v", hits)
	}
	for _, h := range hits {
		if n := len([]rune(h.Text)); n > DefaultOptions().PageChunkRunes {
			t.Errorf("hit on page %d carries %d runes", h.PageLabel, n)
		}
		if h.PageLabel == 4 && (h.Chunk != 1 || !strings.Contains(h.Text, "원자력")) {
			t.Errorf("expected the second window of page 4, got chunk %d", h.Chunk)
		}
	}
}

func TestSearchTables_OnlyMatchingHits(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), nil)
	hits, err := ix.SearchTables(context.Background(), "원자력", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Label != "3-2" || hits[0].Source != SourceFull {
		t.Errorf("expected the single full-text match for 3-2, got %+v", hits)
	}
	hits, _ = ix.SearchTables(context.Background(), "풍력", 5)
	if len(hits) != 0 {
		t.Errorf("expected no hits for an unmatched query, got %+v", hits)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	ix := mustBuild(t, fuelChunkSet(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ix.SearchTables(ctx, "연료비", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
