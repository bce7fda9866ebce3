package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"qabot/config"
	"qabot/internal/adapter/analyzer"
	"qabot/internal/adapter/cache"
	"qabot/internal/adapter/dataset"
	"qabot/internal/adapter/embedding"
	"qabot/internal/adapter/fs"
	"qabot/internal/adapter/llm"
	"qabot/internal/adapter/memstore"
	"qabot/internal/adapter/session"
	"qabot/internal/adapter/store"
	"qabot/internal/port"
	"qabot/internal/usecase"
)

// app holds everything a command needs to answer questions.
type app struct {
	cfg      *config.Config
	root     string
	reader   *dataset.CSVReader
	embedder port.Embedder // corpus embedder, cache-backed when enabled
	query    port.Embedder // query embedder with the in-memory LRU
	cache    *store.BoltStore
	indexUC  *usecase.IndexUseCase
	corpus   *usecase.CorpusHolder
	retrieve *usecase.RetrieveUseCase
}

type appOptions struct {
	progress bool
}

// newApp builds the corpus. Dataset errors are fatal and returned as-is.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg := GetConfig()
	root := GetRootDir()

	base, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	a := &app{
		cfg:    cfg,
		root:   root,
		reader: newReader(cfg, root),
	}

	a.embedder = base
	if cfg.Cache.Enabled {
		if st, err := openCache(cfg, root); err != nil {
			slog.Warn("embedding cache unavailable, continuing without it", "error", err)
		} else {
			a.cache = st
			a.embedder = embedding.NewCachedEmbedder(base, st)
		}
	}
	a.query = cache.NewCachedEmbedder(base, cache.NewQueryCache(cfg.Cache.QuerySize, 30*time.Minute))

	a.indexUC = usecase.NewIndexUseCase(a.reader, a.embedder, cfg.Embedding.BatchSize)

	var progress usecase.Progress
	if opts.progress {
		progress = newProgressBar("Embedding")
	}
	corpus, err := a.indexUC.Build(ctx, progress)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.corpus = usecase.NewCorpusHolder(corpus)
	a.corpus.OnSwap(func(c *usecase.Corpus) {
		slog.Info("knowledge base reloaded",
			"entries", c.Len(),
			"generation", a.corpus.Generation(),
		)
	})
	a.retrieve = usecase.NewRetrieveUseCase(a.corpus, a.query)
	return a, nil
}

// rebuild re-reads the dataset and swaps the corpus in. On failure the
// current corpus stays in place.
func (a *app) rebuild(ctx context.Context) error {
	corpus, err := a.indexUC.Build(ctx, nil)
	if err != nil {
		return err
	}
	a.corpus.Swap(corpus)
	return nil
}

func (a *app) rephraser(ctx context.Context) (*usecase.RephraseUseCase, error) {
	completer, err := newCompleter(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}
	return usecase.NewRephraseUseCase(completer, personaFromConfig(a.cfg.Persona)), nil
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("failed to close embedding cache", "error", err)
		}
	}
}

func newReader(cfg *config.Config, root string) *dataset.CSVReader {
	walker := fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	return dataset.NewGlobReader(root, walker, cfg.Corpus.QuestionColumn, cfg.Corpus.AnswerColumn)
}

func openCache(cfg *config.Config, root string) (*store.BoltStore, error) {
	if err := config.EnsureDataDir(root); err != nil {
		return nil, err
	}
	st, err := store.NewBoltStore(config.CacheDBPath(root))
	if err != nil {
		return nil, err
	}
	cleared, reason, err := st.Prepare(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if cleared {
		slog.Info("embedding cache cleared", "reason", reason)
	}
	return st, nil
}

// NewEmbedder builds the embedder named by embedding.provider.
func NewEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case "", "hash":
		return embedding.NewHashEmbedder(analyzer.NewTokenizer(ec.Stemming), ec.Dimension)
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model)
		if err != nil {
			return nil, err
		}
		return e.WithBatchSize(ec.BatchSize), nil
	case "deepseek":
		e, err := embedding.NewDeepSeekEmbedder(ec.APIKeyEnv, ec.Model)
		if err != nil {
			return nil, err
		}
		return e.WithBatchSize(ec.BatchSize), nil
	case "jina":
		e, err := embedding.NewJinaEmbedder(ec.APIKeyEnv, ec.Model)
		if err != nil {
			return nil, err
		}
		return e.WithBatchSize(ec.BatchSize), nil
	case "ollama":
		e, err := embedding.NewOllamaEmbedder(ec.Model, ec.BaseURL)
		if err != nil {
			return nil, err
		}
		return e.WithBatchSize(ec.BatchSize), nil
	case "openai-compatible":
		e, err := embedding.NewOpenAICompatibleEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL)
		if err != nil {
			return nil, err
		}
		return e.WithDimension(embedding.KnownDimension(ec.Model, ec.Dimension)).WithBatchSize(ec.BatchSize), nil
	case "googleai":
		return embedding.NewGoogleAIEmbedder(ctx, ec.APIKeyEnv, ec.Model, ec.Dimension, ec.BatchSize)
	case "ollama-native":
		return embedding.NewLangChainOllamaEmbedder(ec.Model, ec.BaseURL, ec.Dimension, ec.BatchSize)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
}

func newCompleter(ctx context.Context, cfg *config.Config) (port.Completer, error) {
	lc := cfg.LLM
	var (
		completer port.Completer
		err       error
	)
	switch lc.Provider {
	case "echo":
		return llm.EchoCompleter{}, nil
	case "", "googleai":
		completer, err = llm.NewGoogleAICompleter(ctx, lc.APIKeyEnv, lc.Model, lc.Temperature, lc.MaxTokens)
	case "ollama":
		completer, err = llm.NewOllamaCompleter(lc.Model, lc.BaseURL, lc.Temperature, lc.MaxTokens)
	case "openai":
		completer, err = llm.NewOpenAICompleter(lc.APIKeyEnv, lc.Model, lc.BaseURL, lc.Temperature, lc.MaxTokens)
	case "deepseek", "gemini", "local", "openai-compatible":
		var client *llm.ChatClient
		client, err = llm.NewChatClient(lc.Provider, lc.Model, lc.BaseURL, lc.APIKeyEnv)
		if err == nil {
			completer = client.WithSampling(lc.Temperature, lc.MaxTokens)
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", lc.Provider)
	}
	if err != nil {
		return nil, err
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = max(lc.MaxRetries, 0)
	if lc.Timeout > 0 {
		retry.Timeout = lc.Timeout
	}
	return llm.NewRetryCompleter(completer, retry), nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, root string) (port.SessionStore, error) {
	sc := cfg.Session
	switch sc.Backend {
	case "", "memory":
		return memstore.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(ctx, sc.RedisAddr, sc.RedisDB, sc.TTL)
	case "sqlite":
		if err := config.EnsureDataDir(root); err != nil {
			return nil, err
		}
		return session.NewSQLiteStore(config.ResolvePath(root, sc.SQLitePath))
	default:
		return nil, fmt.Errorf("unknown session backend: %s", sc.Backend)
	}
}

func personaFromConfig(pc config.PersonaConfig) usecase.Persona {
	p := usecase.DefaultPersona()
	if pc.Name != "" {
		p.Name = pc.Name
	}
	if pc.Role != "" {
		p.Role = pc.Role
	}
	if pc.Tone != "" {
		p.Tone = pc.Tone
	}
	p.Speaker = pc.Speaker
	return p
}

// newProgressBar returns a progress callback that draws a bar once the
// total is known.
func newProgressBar(label string) usecase.Progress {
	var bar *progressbar.ProgressBar
	start := time.Now()

	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", label)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(start).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
