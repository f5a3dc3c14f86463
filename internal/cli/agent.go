package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digitalbackpack/subtrack/internal/reminder"
)

// NewAgentCommand creates the "agent" command, a long-running process that
// registers every pending reminder and keeps them healed on a daily cadence.
func NewAgentCommand(root *RootOptions) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the reminder agent until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(root, func(app *App) error {
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				reconciler := reminder.NewReconciler(app.Repo, app.Scheduler)

				// Register reminders immediately so a freshly started
				// agent does not sit dark through the initial delay.
				if runNow {
					if err := reconciler.RunOnce(ctx); err != nil {
						return err
					}
				}

				runner := reminder.NewRunner(reconciler, &reminder.RunnerConfig{
					Interval:     app.Config.ReconcileInterval.Std(),
					InitialDelay: app.Config.ReconcileInitialDelay.Std(),
				})
				runner.Start(ctx)
				defer runner.Stop()

				fmt.Fprintln(cmd.OutOrStdout(), "agent running, press Ctrl+C to stop")

				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigCh)

				select {
				case <-sigCh:
				case <-ctx.Done():
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", true, "run a reconciliation pass immediately on startup")

	return cmd
}
