package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"qabot/config"
	"qabot/internal/observability"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	tracer   *observability.TracerProvider
)

var rootCmd = &cobra.Command{
	Use:   "qabot",
	Short: "Persona Q&A bot - answer questions from a CSV knowledge base",
	Long: `qabot answers questions from a question/answer CSV file. Each question is
matched to the nearest stored entry by embedding similarity and the stored
answer is rephrased by a language model in the voice of a persona.

Example usage:
  qabot index                          # Load and embed my_data.csv
  qabot ask -q "What's your name?"     # Answer one question
  qabot chat                           # Interactive conversation
  qabot serve --watch                  # HTTP API, reload on dataset changes`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := godotenv.Load(config.ResolvePath(rootDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		setupLogging(cfg.Logging)

		warnings, err := cfg.Validate()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		for _, w := range warnings {
			slog.Warn(w)
		}

		tracer, err = observability.InitTracing(cmd.Context(), &observability.TracingConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: Version,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracer == nil {
			return nil
		}
		return tracer.Shutdown(context.Background())
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./qabot.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func setupLogging(lc config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(lc.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
