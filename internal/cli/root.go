package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"retrieval/config"
	"retrieval/internal/logging"
)

var (
	cfgFile   string
	cfg       *config.Config
	rootDir   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "Index a tokenized corpus and rank documents with TF-IDF or BM25",
	Long: `retrieval builds an inverted index over an already-tokenized corpus and
ranks documents for a batch of queries with TF-IDF cosine similarity or
BM25, optionally expanding queries with synonyms and pseudo-relevance
feedback. Results are written in the "qid Q0 doc rank score tag" run format.

Example usage:
  retrieval index corpus.jsonl              # Build .retrieval/index.db
  retrieval search --queries queries.jsonl  # Write Results.txt
  retrieval query -q "covid vaccine"        # Ad-hoc query`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
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
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops work at the next document or query boundary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./retrieval.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
