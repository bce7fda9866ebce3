package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"qabot/config"
	"qabot/internal/adapter/dataset"
	"qabot/internal/adapter/embedding"
	qfs "qabot/internal/adapter/fs"
	"qabot/internal/adapter/store"
	"qabot/internal/cli"
	"qabot/internal/usecase"
)

type miss struct {
	query    string
	got      string
	distance float32
}

func main() {
	dir := flag.String("dir", ".", "Directory with qabot.yaml and the dataset")
	worst := flag.Int("worst", 5, "Number of worst matches to print")
	noCache := flag.Bool("no-cache", false, "Skip the persistent embedding cache")
	flag.Parse()

	if err := loadEnv(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	corpus, retriever, closeCache, err := loadKnowledgeBase(ctx, *dir, cfg, !*noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading knowledge base: %v\n", err)
		os.Exit(1)
	}
	defer closeCache()

	if corpus.Len() == 0 {
		fmt.Println("Knowledge base is empty, nothing to evaluate.")
		return
	}

	fmt.Println("SELF-MATCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Entries:   %d\n", corpus.Len())
	fmt.Printf("Model:     %s (%s)\n", corpus.Model(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", corpus.Dimension())
	fmt.Println()

	hits, misses, distances, elapsed := evaluate(ctx, retriever, corpus)

	if len(distances) == 0 {
		fmt.Fprintln(os.Stderr, "Every query failed.")
		os.Exit(1)
	}

	sort.Slice(misses, func(i, j int) bool { return misses[i].distance > misses[j].distance })

	var total float64
	for _, d := range distances {
		total += float64(d)
	}
	sort.Slice(distances, func(i, j int) bool { return distances[i] < distances[j] })

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Self-match accuracy: %.1f%% (%d/%d)\n", 100*float64(hits)/float64(corpus.Len()), hits, corpus.Len())
	fmt.Printf("  Mean distance:       %.4f\n", total/float64(len(distances)))
	fmt.Printf("  Max distance:        %.4f\n", distances[len(distances)-1])
	fmt.Printf("  Mean query latency:  %s\n", (elapsed / time.Duration(corpus.Len())).Round(time.Microsecond))

	if len(misses) > 0 {
		fmt.Printf("\nWorst misses:\n")
		for i, m := range misses {
			if i >= *worst {
				break
			}
			fmt.Printf("  [%.3f] %q -> %q\n", m.distance, m.query, m.got)
		}
	}

	accuracy := float64(hits) / float64(corpus.Len())
	if accuracy > 0.95 {
		fmt.Println("\n  Status: GOOD - questions find their own answers")
	} else if accuracy > 0.8 {
		fmt.Println("\n  Status: OK - some questions are too similar to tell apart")
	} else {
		fmt.Println("\n  Status: POOR - try a semantic embedding provider")
	}
}

// loadEnv reads dir/.env if present. A missing file is fine; an unreadable
// one is not.
func loadEnv(dir string) error {
	err := godotenv.Load(config.ResolvePath(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadKnowledgeBase embeds the dataset, through the persistent cache when
// useCache is set. Queries go straight to the base embedder so the cache
// only ever holds corpus contexts.
func loadKnowledgeBase(ctx context.Context, dir string, cfg *config.Config, useCache bool) (*usecase.Corpus, *usecase.RetrieveUseCase, func(), error) {
	base, err := cli.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedder init failed: %w", err)
	}

	closeCache := func() {}
	corpusEmbedder := base
	if cfg.Cache.Enabled && useCache {
		if st, err := openCache(dir, cfg); err == nil {
			closeCache = func() { st.Close() }
			corpusEmbedder = embedding.NewCachedEmbedder(base, st)
		} else {
			fmt.Fprintf(os.Stderr, "Embedding cache unavailable: %v\n", err)
		}
	}

	walker := qfs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes)
	reader := dataset.NewGlobReader(dir, walker, cfg.Corpus.QuestionColumn, cfg.Corpus.AnswerColumn)

	corpus, err := usecase.NewIndexUseCase(reader, corpusEmbedder, cfg.Embedding.BatchSize).Build(ctx, nil)
	if err != nil {
		closeCache()
		return nil, nil, nil, err
	}
	retriever := usecase.NewRetrieveUseCase(usecase.NewCorpusHolder(corpus), base)
	return corpus, retriever, closeCache, nil
}

// evaluate queries every entry with its own question. A hit is any entry
// with the same question text, so duplicated questions still count.
func evaluate(ctx context.Context, retriever *usecase.RetrieveUseCase, corpus *usecase.Corpus) (int, []miss, []float32, time.Duration) {
	var (
		hits      int
		misses    []miss
		distances = make([]float32, 0, corpus.Len())
	)
	start := time.Now()
	for _, e := range corpus.Entries() {
		m, err := retriever.RetrieveMatch(ctx, e.Question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query %q failed: %v\n", e.Question, err)
			continue
		}
		distances = append(distances, m.Distance)
		if m.Entry.Question == e.Question {
			hits++
			continue
		}
		misses = append(misses, miss{query: e.Question, got: m.Entry.Question, distance: m.Distance})
	}
	return hits, misses, distances, time.Since(start)
}

func openCache(dir string, cfg *config.Config) (*store.BoltStore, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, err
	}
	st, err := store.NewBoltStore(config.CacheDBPath(dir))
	if err != nil {
		return nil, err
	}
	if _, _, err := st.Prepare(cfg); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
