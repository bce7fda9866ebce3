package port

import (
	"context"

	"qabot/internal/domain"
)

// AnswerRetriever finds the stored answer nearest to a query.
type AnswerRetriever interface {
	// Retrieve returns ok=false only when the corpus is empty.
	Retrieve(ctx context.Context, query string) (answer string, ok bool, err error)

	RetrieveMatch(ctx context.Context, query string) (*domain.Match, error)
}
