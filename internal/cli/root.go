// internal/cli/root.go
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"repolens/internal/config"
	"repolens/internal/github"
	"repolens/internal/insights"
	"repolens/internal/quota"
	"repolens/internal/tools"
)

var (
	flagToken      string
	flagLogLevel   string
	flagBatchSize  int
	flagBatchDelay time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "GitHub repository analytics from the command line",
	Long: `Repolens aggregates GitHub REST data for a repository into derived
analytics: release cadence and downloads, star growth, stargazer influence,
issue and commit activity, traffic referrers and repository search.

Results print as indented JSON on stdout; logs go to stderr.`,
}

// Execute runs the root command with signal-aware cancellation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		godotenv.Load()
	})

	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "GitHub API token (defaults to GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&flagBatchSize, "batch-size", 0, "profile enrichment batch size")
	rootCmd.PersistentFlags().DurationVar(&flagBatchDelay, "batch-delay", 0, "pause between enrichment batches")
}

// buildRegistry assembles the tool stack from configuration plus
// command-line overrides.
func buildRegistry() (*tools.Registry, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if flagToken != "" {
		cfg.GithubToken = flagToken
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagBatchSize > 0 {
		cfg.ProfileBatchSize = flagBatchSize
	}
	if flagBatchDelay > 0 {
		cfg.ProfileBatchDelay = flagBatchDelay
	}

	logLevel := new(slog.LevelVar)
	setLogLevel(cfg.LogLevel, logLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	tracker := quota.NewTracker(logger)
	client := github.NewClient(cfg.GithubToken, tracker, logger)
	client.SetHTTPTimeout(cfg.HTTPTimeout)
	if cfg.GithubAPIURL != "" {
		if err := client.SetAPIBaseURL(cfg.GithubAPIURL); err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL: %w", err)
		}
	}
	service := insights.NewService(client, logger, cfg.ProfileBatchSize, cfg.ProfileBatchDelay)

	registry := tools.NewRegistry(logger)
	tools.RegisterAll(registry, service)
	return registry, nil
}

// invoke dispatches one tool call and prints its result.
func invoke(ctx context.Context, tool string, args tools.Args) error {
	registry, err := buildRegistry()
	if err != nil {
		return err
	}

	result, err := registry.Invoke(ctx, tool, args)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
