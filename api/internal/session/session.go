// Package session is the problem-solving screen: it takes navigation params,
// decides between a fresh question and a follow-up, calls the solver and keeps
// history and conversation context in step with the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pipartner/api/internal/conversation"
	"pipartner/api/internal/history"
	"pipartner/api/internal/inference"
)

const imageProblemLabel = "Image problem"

var ErrUnknownItem = errors.New("session: history item not found")

// Params are the navigation parameters a front-end hands to Submit.
type Params struct {
	Problem       string
	Image         string // base64
	Explanation   string
	IsFromHistory bool
}

// Outcome is what the front-end renders after one submission.
type Outcome struct {
	Explanation   string
	Problem       string
	ExtractedText string
	IsFollowUp    bool
	Replayed      bool

	// ErrorMessage is set instead of Explanation when the service answered
	// without a usable explanation.
	ErrorMessage string
	// Warnings are storage failures; the result is still valid.
	Warnings []string
}

func (o *Outcome) warn(err error) {
	if err != nil {
		o.Warnings = append(o.Warnings, err.Error())
	}
}

type Session struct {
	mu     sync.Mutex
	solver inference.Solver
	conv   *conversation.Holder
	hist   *history.Log
	log    *zap.Logger
}

func New(solver inference.Solver, conv *conversation.Holder, hist *history.Log, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{solver: solver, conv: conv, hist: hist, log: log}
}

// Mount loads history and conversation context. Failures leave the
// corresponding state empty and are returned as warnings.
func (s *Session) Mount(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []string
	if err := s.hist.Load(ctx); err != nil {
		s.log.Warn("history load failed", zap.Error(err))
		warnings = append(warnings, err.Error())
	}
	if err := s.conv.Load(ctx); err != nil {
		s.log.Warn("context load failed", zap.Error(err))
		warnings = append(warnings, err.Error())
	}
	return warnings
}

// Submit runs one exchange. Only transport failures and an empty problem are
// returned as errors; everything else is reported through the Outcome.
func (s *Session) Submit(ctx context.Context, p Params) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(ctx, p)
}

func (s *Session) submit(ctx context.Context, p Params) (Outcome, error) {
	if p.Explanation != "" && p.IsFromHistory {
		out := Outcome{Explanation: p.Explanation, Problem: p.Problem, Replayed: true}
		out.warn(s.conv.Establish(ctx, p.Problem, p.Image, p.Explanation))
		return out, nil
	}

	payload, err := inference.BuildRequest(p.Problem, p.Image, s.conv.Current())
	if err != nil {
		return Outcome{}, err
	}

	s.log.Debug("solving",
		zap.String("input_type", payload.InputType),
		zap.Bool("follow_up", payload.IsFollowUp()),
	)

	env, err := s.solver.Solve(ctx, payload)
	if err != nil {
		var se *inference.StatusError
		if errors.As(err, &se) {
			s.log.Warn("solver returned no explanation", zap.Int("status", se.Code))
			return Outcome{
				Problem:      p.Problem,
				IsFollowUp:   payload.IsFollowUp(),
				ErrorMessage: se.Message(),
			}, nil
		}
		return Outcome{}, fmt.Errorf("session: solve: %w", err)
	}

	out := Outcome{
		Explanation:   env.Explanation,
		Problem:       displayProblem(p.Problem, env),
		ExtractedText: env.OCRResult,
		IsFollowUp:    payload.IsFollowUp(),
	}

	_, err = s.hist.Append(ctx, history.Item{
		Problem:       out.Problem,
		Explanation:   env.Explanation,
		ExtractedText: env.OCRResult,
		Image:         p.Image,
		IsFollowUp:    out.IsFollowUp,
	})
	out.warn(err)

	if out.IsFollowUp {
		out.warn(s.conv.Advance(ctx, env.Explanation))
	} else {
		out.warn(s.conv.Establish(ctx, p.Problem, p.Image, env.Explanation))
	}

	if len(out.Warnings) > 0 {
		s.log.Warn("storage failure after solve", zap.Strings("warnings", out.Warnings))
	}
	return out, nil
}

// displayProblem is the typed text, else the text read from the image.
func displayProblem(typed string, env inference.Envelope) string {
	if strings.TrimSpace(typed) != "" {
		return typed
	}
	if env.OCRResult != "" {
		return env.OCRResult
	}
	return imageProblemLabel
}

// Replay reopens a stored item as if navigated to from the history list.
func (s *Session) Replay(ctx context.Context, id string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.hist.Find(id)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return s.submit(ctx, Params{
		Problem:       it.Problem,
		Image:         it.Image,
		Explanation:   it.Explanation,
		IsFromHistory: true,
	})
}

// NewConversation drops the held context so the next question starts fresh.
func (s *Session) NewConversation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Clear(ctx)
}

func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Clear(ctx)
}

func (s *Session) History() []history.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Items()
}

// InConversation reports whether the next submission is a follow-up.
func (s *Session) InConversation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Current() != nil
}
