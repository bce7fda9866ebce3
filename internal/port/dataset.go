package port

import (
	"context"

	"qabot/internal/domain"
)

// DatasetReader loads knowledge entries in dataset order.
type DatasetReader interface {
	Read(ctx context.Context) ([]domain.KnowledgeEntry, error)

	// Sources lists the files the entries were read from.
	Sources() ([]string, error)
}
