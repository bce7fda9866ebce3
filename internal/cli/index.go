package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"qabot/config"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load and embed the knowledge base",
	Long: `Load the question/answer CSV files, embed every entry and report corpus
statistics. Vectors are kept in .qabot/cache.db so later commands start
without re-embedding unchanged entries.

A file without "question" and "answer" columns stops the command with an
error naming the file and the missing columns.

Examples:
  qabot index
  qabot index -d /path/to/bot`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	fmt.Printf("Loading knowledge base from %s...\n", GetRootDir())

	a, err := newApp(cmd.Context(), appOptions{progress: true})
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.corpus.Load().Stats()

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Entries:     %d\n", stats.Entries)
	fmt.Printf("  Model:       %s (%d dims)\n", stats.Model, stats.Dimension)
	fmt.Printf("  Cache hits:  %d\n", stats.CacheHits)
	fmt.Printf("  Build time:  %s\n", formatDuration(stats.BuildTime))
	if len(stats.Sources) > 0 {
		fmt.Printf("  Sources:\n")
		for _, src := range stats.Sources {
			if rel, err := filepath.Rel(a.root, src); err == nil {
				src = rel
			}
			fmt.Printf("    - %s\n", src)
		}
	}
	if stats.Entries == 0 {
		fmt.Println("\nWarning: the knowledge base is empty; every question will get the fallback reply.")
	}
	if notice := embeddingNotice(a.cfg); notice != "" {
		fmt.Printf("\nNote: %s\n", notice)
	}
	if a.cache != nil {
		fmt.Printf("\nEmbedding cache at: %s\n", config.CacheDBPath(a.root))
	}
	return nil
}

// embeddingNotice explains the built-in hash embedder, which matches on
// shared words only, and how to switch to a sentence model.
func embeddingNotice(cfg *config.Config) string {
	switch cfg.Embedding.Provider {
	case "", "hash":
		return "embedding.provider is hash, a lexical bag-of-words fallback that only matches shared words.\n" +
			"      For semantic matching run `ollama pull all-minilm` and set embedding.provider: ollama,\n" +
			"      embedding.model: all-minilm (see qabot.example.yaml)."
	}
	return ""
}
