package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the task store and event broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		health := a.Container.Health.GetOverallHealth(cmd.Context())
		printHealth(cmd, health)
		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("store is %s", health.Status)
		}
		return nil
	},
}

func printHealth(cmd *cobra.Command, health observability.OverallHealth) {
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, name := range health.Names() {
		check := health.Checks[name]
		tbl.AddRow(name, statusColor(check.Status).Sprint(check.Status), check.Message)
	}

	out := cmd.OutOrStdout()
	_, _ = color.New(color.Bold).Fprintf(out, "%s\n", statusColor(health.Status).Sprint(health.Status))
	_, _ = fmt.Fprintln(out, tbl)
}

func statusColor(s observability.HealthStatus) *color.Color {
	switch s {
	case observability.HealthStatusHealthy:
		return color.New(color.FgGreen)
	case observability.HealthStatusDegraded:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
