package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the engine status and reload statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := c.app.Status()
			if err != nil {
				return err
			}
			stats, err := c.app.ReloadStatistics()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "root:            %s\n", status.Root)
			_, _ = fmt.Fprintf(out, "active sessions: %d\n", len(status.ActiveSessions))
			_, _ = fmt.Fprintf(out, "queued:          %d\n", status.QueueLength)
			_, _ = fmt.Fprintf(out, "known units:     %d\n", status.KnownUnits)
			_, _ = fmt.Fprintf(out, "cached units:    %d\n", status.CachedUnits)
			_, _ = fmt.Fprintf(out, "active patches:  %d\n", status.ActivePatches)
			_, _ = fmt.Fprintf(out, "snapshots:       %d\n", status.Snapshots)
			_, _ = fmt.Fprintf(out, "reloads:         %d total, %d succeeded, %d failed, %d cancelled, %d timed out\n",
				stats.Total, stats.Succeeded, stats.Failed, stats.Cancelled, stats.TimedOut)
			if stats.Total > 0 {
				_, _ = fmt.Fprintf(out, "success rate:    %.0f%%\n", stats.SuccessRate*100)
				_, _ = fmt.Fprintf(out, "avg duration:    %s\n", stats.AverageDuration)
			}
			return nil
		},
	}
}
