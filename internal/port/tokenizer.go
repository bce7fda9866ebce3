package port

// Tokenizer turns text into the terms fed to lexical embedders.
type Tokenizer interface {
	Tokenize(text string) []string

	// CountTokens estimates LLM tokens for prompt budgeting.
	CountTokens(text string) int
}
