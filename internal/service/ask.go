package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"videorag/internal/domain"
)

const busyText = "Indexing in progress, please wait."

var errOneVector = errors.New("expected exactly one query vector")

// Answer retrieves context for question and asks the completer. Asking
// before any ingestion proceeds with empty context.
func (s *Session) Answer(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.ErrEmptyQuestion
	}
	if s.ingesting.Load() {
		return "", domain.ErrBusy
	}
	retrieved, err := s.Retrieve(ctx, question, s.settings.TopK)
	if err != nil {
		return "", err
	}
	s.logger.Debug("context retrieved", zap.Int("chunks", len(retrieved)))
	p := s.composer.Compose(question, domain.RetrievedTexts(retrieved))
	answer, err := s.completer.Complete(ctx, p)
	if err != nil {
		s.logger.Warn("completion failed", zap.Error(err))
		return "", err
	}
	return answer, nil
}

// AskTurn runs Answer and records the outcome as the session's last turn.
// On failure the turn's answer describes the error, which is also returned.
func (s *Session) AskTurn(ctx context.Context, question string) (domain.Turn, error) {
	answer, err := s.Answer(ctx, question)
	if err != nil {
		answer = AskErrorText(err)
	}
	turn := domain.Turn{Question: question, Answer: answer}
	if !errors.Is(err, domain.ErrEmptyQuestion) {
		s.mu.Lock()
		s.lastTurn = &turn
		s.mu.Unlock()
	}
	return turn, err
}

// Ask returns the answer to question, or a description of the failure.
func (s *Session) Ask(ctx context.Context, question string) string {
	turn, _ := s.AskTurn(ctx, question)
	return turn.Answer
}

// AskErrorText formats a failure of Answer for display in place of an answer.
func AskErrorText(err error) string {
	var httpErr *domain.HTTPError
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, domain.ErrBusy):
		return busyText
	case errors.As(err, &httpErr),
		errors.Is(err, domain.ErrTransport),
		errors.Is(err, domain.ErrMalformedResponse):
		return "API Error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
