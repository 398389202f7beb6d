package toc

import (
	"fmt"
	"strings"
	"testing"
)

func TestIsTOC_Keywords(t *testing.T) {
	for _, text := range []string{
		"목 차\n제1장 서론 ....... 1",
		"보고서\n표 목차\n",
		"그림목차",
		"Annual Report\nContents\nIntroduction 1",
	} {
		if !IsTOC(text, DefaultOptions()) {
			t.Errorf("expected TOC for %q", text)
		}
	}
}

func TestIsTOC_LabelListing(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "표 3-%d 연도별 에너지 소비 ........ %d\n", i, 10+i)
	}
	if !IsTOC(sb.String(), DefaultOptions()) {
		t.Error("expected a page of ten label lines to be a TOC")
	}
}

func TestIsTOC_BodyPage(t *testing.T) {
	text := "본문에서는 표 3-1과 그림 2-1을 참고한다.\n" +
		"표 3-1 연료비 현황\n" +
		"2021  2022  2023\n" +
		"연료비는 전년 대비 증가하였다. 이 내용은 contents of the box와 무관하다.\n"
	if IsTOC(text, DefaultOptions()) {
		t.Error("expected body page not to be a TOC")
	}
}

func TestIsTOC_KeywordBeyondHead(t *testing.T) {
	text := strings.Repeat("가", 1200) + "\n목차"
	if IsTOC(text, DefaultOptions()) {
		t.Error("expected keyword past the inspected head to be ignored")
	}
}

func TestIsTOC_ListingBeyondHeadLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("x\n")
	}
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&sb, "그림 1-%d 제목\n", i)
	}
	opts := Options{HeadChars: 10000, HeadLines: 50, MinLabelLines: 5}
	if IsTOC(sb.String(), opts) {
		t.Error("expected label lines after the head lines to be ignored")
	}
}
