package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/eventbus"
)

var watchQueue string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect sync events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch [pattern...]",
	Short: "Print sync events published to RabbitMQ",
	Long: `Print sync events as other taskcal processes publish them.

Patterns are topic routing keys and default to taskcal.sync.*, e.g.
  taskcal events watch taskcal.sync.failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		c := a.Container
		if c.Config.RabbitMQURL == "" {
			return errors.New("events watch requires RABBITMQ_URL")
		}

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:    c.Config.RabbitMQURL,
			Queue:  watchQueue,
			Logger: c.Logger,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()

		out := cmd.OutOrStdout()
		err = consumer.Subscribe(sync.NewEventHandler(c.Metrics,
			func(_ context.Context, env *eventbus.Envelope, evt sync.SyncEvent) error {
				fmt.Fprintln(out, formatEvent(env, evt))
				return nil
			},
			args...,
		))
		if err != nil {
			return err
		}

		err = consumer.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func formatEvent(env *eventbus.Envelope, evt sync.SyncEvent) string {
	outcome := color.New(color.FgGreen)
	switch evt.Outcome {
	case sync.OutcomeFailed, sync.OutcomeRolledBack:
		outcome = color.New(color.FgRed)
	case sync.OutcomeLoaded:
		outcome = color.New(color.FgCyan)
	}

	op := string(evt.Op)
	if evt.Outcome == sync.OutcomeLoaded {
		op = "load"
	}

	line := fmt.Sprintf("%s %-6s %s", env.OccurredAt.Local().Format("15:04:05"), op, outcome.Sprint(evt.Outcome))
	if evt.Outcome == sync.OutcomeLoaded {
		line += fmt.Sprintf(" %d tasks", evt.Count)
	}
	if evt.TaskID != "" {
		line += " " + evt.TaskID
	}
	if evt.Stale {
		line += color.New(color.Faint).Sprint(" (stale)")
	}
	line += fmt.Sprintf(" %dms", evt.DurationMs)
	if evt.Error != "" {
		line += ": " + evt.Error
	}
	return line
}

func init() {
	eventsWatchCmd.Flags().StringVar(&watchQueue, "queue", "", "durable queue name (default: exclusive, deleted on exit)")

	eventsCmd.AddCommand(eventsWatchCmd)
	rootCmd.AddCommand(eventsCmd)
}
