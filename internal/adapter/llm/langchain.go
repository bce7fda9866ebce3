package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainCompleter adapts a langchaingo model to port.Completer.
type LangChainCompleter struct {
	model       llms.Model
	name        string
	temperature float64
	maxTokens   int
}

func NewLangChainCompleter(model llms.Model, name string, temperature float64, maxTokens int) *LangChainCompleter {
	return &LangChainCompleter{
		model:       model,
		name:        name,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// NewGoogleAICompleter uses the Gemini API; gemini-1.5-flash when model is empty.
func NewGoogleAICompleter(ctx context.Context, apiKeyEnv, model string, temperature float64, maxTokens int) (*LangChainCompleter, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}
	return NewLangChainCompleter(client, model, temperature, maxTokens), nil
}

func NewOllamaCompleter(model, serverURL string, temperature float64, maxTokens int) (*LangChainCompleter, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangChainCompleter(client, model, temperature, maxTokens), nil
}

func NewOpenAICompleter(apiKeyEnv, model, baseURL string, temperature float64, maxTokens int) (*LangChainCompleter, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainCompleter(client, model, temperature, maxTokens), nil
}

func (c *LangChainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	return llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
}

func (c *LangChainCompleter) ModelName() string {
	return c.name
}
