package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// ChatClient is a minimal client for OpenAI-compatible chat completion APIs.
type ChatClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client

	mu    sync.Mutex
	stats Stats
}

// Stats tracks usage across calls.
type Stats struct {
	TotalCalls       int
	TotalInputChars  int
	TotalOutputChars int
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Known OpenAI-compatible endpoints.
var providers = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"openai":   {"https://api.openai.com/v1", "OPENAI_API_KEY"},
	"gemini":   {"https://generativelanguage.googleapis.com/v1beta/openai", "GEMINI_API_KEY"},
	"local":    {"http://localhost:11434/v1", ""},
}

// NewChatClient creates a client for a named provider or a custom baseURL.
// apiKeyEnv overrides the provider's default key variable.
func NewChatClient(provider, model, baseURL, apiKeyEnv string) (*ChatClient, error) {
	p, ok := providers[provider]
	if !ok && baseURL == "" {
		return nil, fmt.Errorf("unknown provider: %s (set llm.base_url for custom endpoints)", provider)
	}

	if baseURL == "" {
		baseURL = p.baseURL
	}
	keyEnv := p.keyEnvVar
	if apiKeyEnv != "" {
		keyEnv = apiKeyEnv
	}

	var apiKey string
	if keyEnv != "" {
		apiKey = os.Getenv(keyEnv)
		if apiKey == "" && provider != "local" {
			return nil, fmt.Errorf("API key not found. Set %s environment variable", keyEnv)
		}
	}

	return &ChatClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		maxTokens:   1024,
		client:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// WithSampling sets temperature and the completion token limit.
func (c *ChatClient) WithSampling(temperature float64, maxTokens int) *ChatClient {
	c.temperature = temperature
	if maxTokens > 0 {
		c.maxTokens = maxTokens
	}
	return c
}

// Chat sends a chat completion request.
func (c *ChatClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	inputChars := 0
	for _, msg := range messages {
		inputChars += len(msg.Content)
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	output := chatResp.Choices[0].Message.Content

	c.mu.Lock()
	c.stats.TotalCalls++
	c.stats.TotalInputChars += inputChars
	c.stats.TotalOutputChars += len(output)
	c.mu.Unlock()

	return output, nil
}

// Complete implements port.Completer with a single user message.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []ChatMessage{{Role: "user", Content: prompt}})
}

func (c *ChatClient) ModelName() string {
	return c.model
}

func (c *ChatClient) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
