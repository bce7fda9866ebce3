package port

import "context"

// Completer is the generative boundary used to rephrase retrieved answers.
type Completer interface {
	// Complete returns the model's text for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
