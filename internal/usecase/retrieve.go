package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"qabot/internal/domain"
	"qabot/internal/observability"
	"qabot/internal/port"
)

// ErrModelMismatch means the query embedder is not the one that built the
// corpus, so distances between the two would be meaningless.
var ErrModelMismatch = errors.New("query embedding model does not match corpus model")

// RetrieveUseCase finds the single nearest knowledge entry for a query.
type RetrieveUseCase struct {
	corpus   *CorpusHolder
	embedder port.Embedder
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(corpus *CorpusHolder, embedder port.Embedder) *RetrieveUseCase {
	return &RetrieveUseCase{
		corpus:   corpus,
		embedder: embedder,
	}
}

// Retrieve returns the answer of the nearest entry. ok is false only when
// the corpus is empty; there is no distance cut-off.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string) (string, bool, error) {
	m, err := u.RetrieveMatch(ctx, query)
	if err != nil {
		return "", false, err
	}
	if m == nil {
		return "", false, nil
	}
	return m.Entry.Answer, true, nil
}

// RetrieveMatch is Retrieve with position and distance.
func (u *RetrieveUseCase) RetrieveMatch(ctx context.Context, query string) (*domain.Match, error) {
	corpus := u.corpus.Load()
	size := 0
	if corpus != nil {
		size = corpus.Len()
	}

	ctx, span := observability.StartRetrieveSpan(ctx, size)
	defer span.End()

	if size == 0 {
		return nil, nil
	}

	if corpus.Model() != u.embedder.ModelName() {
		err := &domain.RetrievalError{
			Op:  "embed",
			Err: fmt.Errorf("%w: corpus %s, query %s", ErrModelMismatch, corpus.Model(), u.embedder.ModelName()),
		}
		observability.RecordError(span, err)
		return nil, err
	}

	vecs, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		err = &domain.RetrievalError{Op: "embed", Err: err}
		observability.RecordError(span, err)
		return nil, err
	}
	if len(vecs) != 1 {
		err = &domain.RetrievalError{Op: "embed", Err: fmt.Errorf("expected 1 vector, got %d", len(vecs))}
		observability.RecordError(span, err)
		return nil, err
	}

	m, err := corpus.Nearest(vecs[0])
	if err != nil {
		err = &domain.RetrievalError{Op: "search", Err: err}
		observability.RecordError(span, err)
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	observability.RecordMatch(span, m.Position, m.Distance)
	slog.Debug("retrieved entry", "position", m.Position, "distance", m.Distance)
	return m, nil
}
