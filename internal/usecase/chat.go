package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"qabot/internal/domain"
	"qabot/internal/observability"
	"qabot/internal/port"
)

const noAnswerText = "I'm sorry, I cannot answer that question."

// Session is one conversation. Turns on the same session run one at a
// time; different sessions proceed independently.
type Session struct {
	ID string
	mu sync.Mutex
}

// NewSession starts a conversation with a fresh id.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// ResumeSession continues a conversation whose transcript is already in a store.
func ResumeSession(id string) *Session {
	return &Session{ID: id}
}

// TurnResult describes what happened during one turn.
type TurnResult struct {
	Reply domain.ConversationTurn
	Match *domain.Match
	Err   error // per-turn failure, already folded into Reply
}

// ChatUseCase runs retrieve-then-rephrase for each user message and keeps
// the transcript in a session store.
type ChatUseCase struct {
	retriever port.AnswerRetriever
	rephraser *RephraseUseCase
	store     port.SessionStore
	now       func() time.Time

	answerTimeout time.Duration
}

// NewChatUseCase creates a new chat use case.
func NewChatUseCase(retriever port.AnswerRetriever, rephraser *RephraseUseCase, store port.SessionStore) *ChatUseCase {
	return &ChatUseCase{
		retriever: retriever,
		rephraser: rephraser,
		store:     store,
		now:       time.Now,
	}
}

// WithAnswerTimeout bounds retrieval plus rephrasing of every turn. A turn
// that runs out of time still records an error reply. Zero means no limit.
func (u *ChatUseCase) WithAnswerTimeout(d time.Duration) *ChatUseCase {
	u.answerTimeout = d
	return u
}

// Turn appends the user message, answers it and appends the reply. Only
// store failures are returned; retrieval and rephrase failures become the
// reply text and the session stays usable.
func (u *ChatUseCase) Turn(ctx context.Context, s *Session, input string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := observability.StartTurnSpan(ctx, s.ID)
	defer span.End()

	user := domain.ConversationTurn{Role: domain.RoleUser, Content: input, CreatedAt: u.now()}
	if err := u.store.Append(ctx, s.ID, user); err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to record user turn: %w", err)
	}

	answerCtx := ctx
	if u.answerTimeout > 0 {
		var cancel context.CancelFunc
		answerCtx, cancel = context.WithTimeout(ctx, u.answerTimeout)
		defer cancel()
	}

	result := &TurnResult{}
	content, match, err := u.answer(answerCtx, input)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("no answer within %s: %w", u.answerTimeout, err)
	}
	if err != nil {
		slog.Warn("turn failed", "session", s.ID, "error", err)
		observability.RecordError(span, err)
		content = "An error occurred: " + err.Error()
		result.Err = err
	}
	result.Match = match

	reply := domain.ConversationTurn{Role: domain.RoleAssistant, Content: content, CreatedAt: u.now()}
	if err := u.store.Append(ctx, s.ID, reply); err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to record assistant turn: %w", err)
	}
	result.Reply = reply
	return result, nil
}

func (u *ChatUseCase) answer(ctx context.Context, query string) (string, *domain.Match, error) {
	match, err := u.retriever.RetrieveMatch(ctx, query)
	if err != nil {
		return "", nil, err
	}
	if match == nil {
		return u.frame(noAnswerText), nil, nil
	}

	refined, err := u.rephraser.Rephrase(ctx, query, match.Entry.Answer)
	if err != nil {
		return "", match, err
	}
	return u.frame(refined), match, nil
}

func (u *ChatUseCase) frame(text string) string {
	speaker := u.rephraser.Persona().Speaker
	if speaker == "" {
		return text
	}
	return fmt.Sprintf("**%s**:\n%s", speaker, text)
}

// History returns the session transcript in append order.
func (u *ChatUseCase) History(ctx context.Context, s *Session) ([]domain.ConversationTurn, error) {
	return u.store.History(ctx, s.ID)
}

// Reset drops the transcript; the session id stays valid.
func (u *ChatUseCase) Reset(ctx context.Context, s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return u.store.Delete(ctx, s.ID)
}
