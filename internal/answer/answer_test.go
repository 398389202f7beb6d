package answer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/hilens/internal/metrics"
	"github.com/dgallion1/hilens/internal/retrieval"
)

func hit(page int, text string, score float64) retrieval.Hit {
	return retrieval.Hit{PageIndex: page - 1, PageLabel: page, Text: text, Score: score, Source: retrieval.SourceShort}
}

func TestBuildContext_SkipsHitsThatDoNotFit(t *testing.T) {
	hits := []retrieval.Hit{
		hit(3, "표 3-1 연료비\n2023 12.5", 0.912345),
		hit(7, strings.Repeat("가", 50), 0.5),
		hit(9, "짧은", 0.4),
	}
	ctx, ev := BuildContext(hits, 40)
	if ctx != "(p.3) 표 3-1 연료비 2023 12.5\n\n(p.9) 짧은" {
		t.Errorf("unexpected context %q", ctx)
	}
	if len(ev) != 2 || ev[0].Page != 3 || ev[0].Score != 0.9123 || ev[1].Page != 9 {
		t.Errorf("unexpected evidences %+v", ev)
	}
}

func TestBuildContext_CutsOversizedHit(t *testing.T) {
	hits := []retrieval.Hit{
		hit(2, strings.Repeat("가나다", 1200), 0.9),
		hit(5, "석탄 연료비 12.5", 0.5),
	}
	ctx, ev := BuildContext(hits, 3000)
	if len(ev) != 2 || ev[0].Page != 2 || ev[1].Page != 5 {
		t.Fatalf("expected both hits as evidence, got %+v", ev)
	}
	want := "(p.2) " + strings.Repeat("가나다", 400) + "\n\n(p.5) 석탄 연료비 12.5"
	if ctx != want {
		t.Errorf("unexpected context of %d runes", utf8.RuneCountInString(ctx))
	}

	ctx, ev = BuildContext(hits[:1], 500)
	if n := utf8.RuneCountInString(ctx); n != 500 || len(ev) != 1 {
		t.Errorf("expected the first hit cut to the budget, got %d runes and %d evidences", n, len(ev))
	}
}

func TestBuildContext_SnippetTruncated(t *testing.T) {
	_, ev := BuildContext([]retrieval.Hit{hit(1, strings.Repeat("표", 300), 1)}, 3000)
	if len(ev) != 1 {
		t.Fatalf("expected one evidence, got %d", len(ev))
	}
	if n := utf8.RuneCountInString(ev[0].Snippet); n != snippetRunes+3 || !strings.HasSuffix(ev[0].Snippet, "...") {
		t.Errorf("expected %d-rune snippet with ellipsis, got %d", snippetRunes+3, n)
	}
}

type fakeModel struct {
	calls  int
	system string
	user   string
	err    error
}

func (f *fakeModel) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system, f.user = system, user
	return " 석탄 연료비는 12.5입니다.\n출처: p.3 ", f.err
}

func TestAnswer_InsufficientSkipsModel(t *testing.T) {
	m := &fakeModel{}
	res, err := New(m, DefaultOptions()).Answer(context.Background(), "연료비는?", []retrieval.Hit{hit(1, "짧음", 1)})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !res.Insufficient || res.Answer != InsufficientEvidence || m.calls != 0 {
		t.Errorf("expected canned answer without model call, got %+v (%d calls)", res, m.calls)
	}
	if len(res.Evidences) != 1 {
		t.Errorf("expected evidences kept, got %+v", res.Evidences)
	}
}

func TestAnswer_CallsModel(t *testing.T) {
	m := &fakeModel{}
	hits := []retrieval.Hit{hit(3, strings.Repeat("2023년 석탄 연료비 12.5 ", 6), 0.8)}
	res, err := New(m, DefaultOptions()).Answer(context.Background(), " 석탄 연료비는? ", hits)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if m.calls != 1 || m.system != SystemPrompt {
		t.Fatalf("expected one model call with the system prompt, got %d", m.calls)
	}
	if !strings.HasPrefix(m.user, "[질문]\n석탄 연료비는?\n\n[맥락]\n(p.3) ") {
		t.Errorf("unexpected user prompt %q", m.user)
	}
	if res.Answer != "석탄 연료비는 12.5입니다.\n출처: p.3" || res.Insufficient {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAnswer_LongFirstHitStillReachesModel(t *testing.T) {
	m := &fakeModel{}
	hits := []retrieval.Hit{
		hit(2, strings.Repeat("발전 설비 현황 개요 ", 360), 0.9),
		hit(3, "2023년 석탄 연료비 12.5", 0.7),
	}
	res, err := New(m, DefaultOptions()).Answer(context.Background(), "석탄 연료비는?", hits)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if m.calls != 1 || res.Insufficient {
		t.Fatalf("expected a model call, got %d calls and %+v", m.calls, res)
	}
	if !strings.Contains(m.user, "(p.3) 2023년 석탄 연료비 12.5") {
		t.Errorf("expected the short hit in the prompt")
	}
	if len(res.Evidences) != 2 || res.Evidences[1].Page != 3 {
		t.Errorf("unexpected evidences %+v", res.Evidences)
	}
}

func TestAnswer_Errors(t *testing.T) {
	hits := []retrieval.Hit{hit(3, strings.Repeat("발전량 ", 30), 0.8)}
	if _, err := New(nil, DefaultOptions()).Answer(context.Background(), "q", hits); !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := New(&fakeModel{err: boom}, DefaultOptions()).Answer(context.Background(), "q", hits); !errors.Is(err, boom) {
		t.Errorf("expected wrapped model error, got %v", err)
	}
	if _, err := New(&fakeModel{}, DefaultOptions()).Answer(context.Background(), "  ", hits); err == nil {
		t.Error("expected error for empty question")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClaudeClient_Complete(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"답변"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer srv.Close()

	lat := metrics.NewLatency(0)
	c := NewClaudeClient(ClaudeConfig{APIKey: "k", Model: "claude-test", BaseURL: srv.URL, Attempts: 1}, lat, testLogger())
	out, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "답변" || calls.Load() != 1 {
		t.Errorf("expected 답변 after one call, got %q after %d", out, calls.Load())
	}
	if s, ok := lat.Snapshot()[metrics.OpAnswer]; !ok || s.Count != 1 {
		t.Errorf("expected one answer latency sample, got %+v", lat.Snapshot())
	}
}

func TestClaudeClient_NoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	c := NewClaudeClient(ClaudeConfig{APIKey: "k", BaseURL: srv.URL, Attempts: 3}, nil, testLogger())
	if _, err := c.Complete(context.Background(), "", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries for 400, got %d calls", calls.Load())
	}
}
