package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/hilens/internal/retrieval"
)

// ErrNoModel is returned when answering needs a model but none is configured.
var ErrNoModel = errors.New("no answer model configured")

// Model completes a system and user prompt pair.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Options struct {
	CharLimit  int // context budget in runes
	MinContext int // shorter contexts get InsufficientEvidence
}

func DefaultOptions() Options {
	return Options{CharLimit: 3000, MinContext: 80}
}

// Result is an answer with the passages it was grounded on.
type Result struct {
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Evidences    []Evidence `json:"evidences"`
	Insufficient bool       `json:"insufficient"`
}

type Answerer struct {
	model Model
	opts  Options
}

// New returns an Answerer. model may be nil; questions with enough context
// then fail with ErrNoModel.
func New(model Model, opts Options) *Answerer {
	return &Answerer{model: model, opts: opts}
}

// Answer builds a context from hits and asks the model. Thin contexts short
// circuit to InsufficientEvidence without a model call.
func (a *Answerer) Answer(ctx context.Context, question string, hits []retrieval.Hit) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, errors.New("question is empty")
	}
	text, evidences := BuildContext(hits, a.opts.CharLimit)
	res := Result{Question: question, Evidences: evidences}
	if utf8.RuneCountInString(text) < a.opts.MinContext {
		res.Answer = InsufficientEvidence
		res.Insufficient = true
		return res, nil
	}
	if a.model == nil {
		return res, ErrNoModel
	}
	out, err := a.model.Complete(ctx, SystemPrompt, BuildUserPrompt(question, text))
	if err != nil {
		return res, fmt.Errorf("answer: %w", err)
	}
	res.Answer = strings.TrimSpace(out)
	return res, nil
}
