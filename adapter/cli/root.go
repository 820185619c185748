package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
)

type startedAtKey struct{}

var rootCmd = &cobra.Command{
	Use:   "taskcal",
	Short: "Dated tasks as lists and a month calendar",
	Long: `taskcal keeps dated tasks in a document store and shows them as
an undone list, today's mission, a day listing and a month grid.

Changes are applied locally first and then saved to the configured store.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRun:  beginCommand,
	PersistentPostRun: endCommand,
}

// beginCommand gives each invocation its own correlation id so log lines,
// remote requests and sync events of one command can be tied together.
func beginCommand(cmd *cobra.Command, _ []string) {
	if verbose {
		cfg := observability.LogConfigFromEnv()
		cfg.Level = slog.LevelDebug
		logger = observability.NewLogger(cfg)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithCorrelationID(ctx, "")
	ctx = context.WithValue(ctx, startedAtKey{}, time.Now())
	cmd.SetContext(ctx)

	cliLogger().DebugContext(ctx, "command start", "command", cmd.CommandPath())
}

func endCommand(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()
	started, ok := ctx.Value(startedAtKey{}).(time.Time)
	if !ok {
		return
	}
	cliLogger().DebugContext(ctx, "command end",
		"command", cmd.CommandPath(),
		observability.DurationKey, time.Since(started).Milliseconds(),
	)
}

func cliLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Execute runs the root command with ctx and prints any error to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// AddCommand registers cmds under the root command.
func AddCommand(cmds ...*cobra.Command) {
	rootCmd.AddCommand(cmds...)
}

func SetLogger(l *slog.Logger) {
	logger = l
}
