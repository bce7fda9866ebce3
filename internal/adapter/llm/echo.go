package llm

import (
	"context"
	"strings"
)

// EchoCompleter returns the retrieved answer from a rephrase prompt
// unchanged. It lets the bot run without a hosted model.
type EchoCompleter struct{}

const (
	retrievedMarker   = "\n    Retrieved Answer:"
	instructionMarker = "\n    - Provide a detailed"
)

// Complete cuts the answer between the last "Retrieved Answer:" line and
// the trailing instruction bullets, so a question quoting the marker or an
// answer with its own bullets survives.
func (EchoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	head := prompt
	if j := strings.LastIndex(head, instructionMarker); j >= 0 {
		head = head[:j]
	}
	i := strings.LastIndex(head, retrievedMarker)
	if i < 0 {
		return strings.TrimSpace(prompt), nil
	}
	return strings.TrimSpace(head[i+len(retrievedMarker):]), nil
}

func (EchoCompleter) ModelName() string {
	return "echo"
}
