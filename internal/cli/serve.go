package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"qabot/internal/adapter/fs"
	"qabot/internal/adapter/watcher"
	"qabot/internal/server"
	"qabot/internal/usecase"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat over HTTP",
	Long: `Serve the chat as a JSON API.

Routes:
  POST   /api/sessions                 start a session
  POST   /api/sessions/{id}/messages   send {"content": "..."}, get the reply
  GET    /api/sessions/{id}/messages   transcript
  DELETE /api/sessions/{id}            clear the transcript
  GET    /api/health                   corpus status

With --watch the dataset files are watched and the knowledge base is rebuilt
when they change. A rebuild that fails keeps the previous knowledge base.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild the knowledge base when dataset files change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rephraser, err := a.rephraser(ctx)
	if err != nil {
		return err
	}

	store, err := newSessionStore(ctx, a.cfg, a.root)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	if serveWatch || a.cfg.Server.Watch {
		if err := watchDataset(ctx, a); err != nil {
			return err
		}
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	turnTimeout := a.cfg.Server.TurnTimeout
	chat := usecase.NewChatUseCase(a.retrieve, rephraser, store).WithAnswerTimeout(turnTimeout)
	srv := server.New(chat, a.corpus, &server.Config{Version: Version, TurnTimeout: turnTimeout})
	return srv.ListenAndServe(ctx, addr)
}

// watchDataset rebuilds the corpus whenever a file matching the corpus
// patterns changes, including files that did not exist at startup.
func watchDataset(ctx context.Context, a *app) error {
	walker := fs.NewWalker(a.cfg.Corpus.Includes, a.cfg.Corpus.Excludes)
	dirs, err := walker.Dirs(a.root)
	if err != nil {
		return fmt.Errorf("failed to list dataset directories: %w", err)
	}

	w, err := watcher.NewFSNotifyWatcher(nil, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.WithFilter(func(path string) bool { return walker.Match(a.root, path) })

	events, err := w.Watch(ctx, dirs)
	if err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch dataset: %w", err)
	}

	go func() {
		defer w.Stop()
		for ev := range events {
			slog.Info("dataset changed, rebuilding", "path", ev.Path, "op", ev.Op)
			if err := a.rebuild(ctx); err != nil {
				slog.Error("rebuild failed, keeping previous knowledge base", "error", err)
			}
		}
	}()

	slog.Info("watching dataset", "dirs", len(dirs), "patterns", a.cfg.Corpus.Includes)
	return nil
}
