package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts and warnings",
	Long: `Evaluate alert conditions against the event log and display any triggered alerts.

Alerts check for a topic tree that failed to save after its last good write,
repeated failures to load the tree, and message deliveries failing above the
configured threshold. With --notify the alerts are also posted to the Slack
webhook from notifications.slack_webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			fmt.Fprintf(out, "  [%s] %s (%s)\n", strings.ToUpper(string(alert.Severity)), alert.Message, alert.Condition)
			fmt.Fprintf(out, "         triggered at %s\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
			for _, k := range slices.Sorted(maps.Keys(alert.Details)) {
				fmt.Fprintf(out, "         %s: %s\n", k, alert.Details[k])
			}
			fmt.Fprintln(out)
		}

		if !alertsNotify {
			return nil
		}
		if Notifier == nil {
			return fmt.Errorf("notifier not configured (set notifications.slack_webhook)")
		}
		if err := Notifier.Notify(alerts); err != nil {
			return fmt.Errorf("sending notifications: %w", err)
		}
		fmt.Fprintf(out, "Sent %d alert(s) to Slack.\n", len(alerts))
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Send triggered alerts to the configured Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
