// Command prewarm builds document indexes ahead of the first question.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"madison-ai/internal/app"
	"madison-ai/internal/config"
	"madison-ai/internal/rag"
)

var (
	aggregate bool
	watch     bool
)

var rootCmd = &cobra.Command{
	Use:   "prewarm [labels...]",
	Short: "Build document indexes ahead of questions",
	Long: `Indexes every document in the books directory whose content changed
since its index was built. If labels are given, only those documents are
indexed. With --aggregate the all-documents index is rebuilt as well.
With --watch the command keeps running and re-indexes documents as their
files change.`,
	SilenceUsage: true,
	RunE:         runPrewarm,
}

func init() {
	rootCmd.Flags().BoolVar(&aggregate, "aggregate", false, "also ensure the all-documents index")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-index changed documents")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPrewarm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	if !cfg.HasCredentials() {
		return fmt.Errorf("LLM_API_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = pipeline.Close()
	}()

	report, err := pipeline.Prewarmer.Prewarm(ctx, args, aggregate)
	printReport(cmd, report)
	if err != nil {
		return fmt.Errorf("prewarm failed: %w", err)
	}

	if !watch {
		return nil
	}

	watcher, err := pipeline.Library.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Stop()
	}()
	events, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", cfg.BooksDir)
	pipeline.Prewarmer.Watch(ctx, events, aggregate)
	return nil
}

func printReport(cmd *cobra.Command, report rag.PrewarmReport) {
	for _, label := range report.Skipped {
		cmd.Printf("[skip]    %s\n", label)
	}
	for _, label := range report.Built {
		cmd.Printf("[done]    %s\n", label)
	}
	for _, label := range report.Missing {
		cmd.Printf("[missing] %s\n", label)
	}
	if report.AggregateIndexID != "" {
		cmd.Printf("[done]    all documents -> %s\n", report.AggregateIndexID)
	}
	cmd.Printf("%d built, %d up to date, %d missing\n", len(report.Built), len(report.Skipped), len(report.Missing))
}
