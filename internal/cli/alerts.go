package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/spf13/cobra"
)

var (
	alertLimit    int
	alertOffset   int
	alertProject  string
	alertRecord   string
	alertSince    string
	alertUnseen   bool
	alertArchived bool
	alertSeen     bool
	alertArchive  bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Review alerts raised for your records",
	RunE:  runAlertsList,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts",
	Long: `List alerts, newest first.

Examples:
  matchlight alerts list --unseen -n 20
  matchlight alerts list --project <upload-token> --since 2016-08-26`,
	Args: cobra.NoArgs,
	RunE: runAlertsList,
}

var alertsEditCmd = &cobra.Command{
	Use:   "edit <alert-id>",
	Short: "Mark an alert seen or archived",
	Long: `Update the seen and archived state of an alert. Only flags given on
the command line are changed.

Example:
  matchlight alerts edit <alert-id> --seen --archived=false`,
	Args: cobra.ExactArgs(1),
	RunE: runAlertsEdit,
}

var alertsDetailsCmd = &cobra.Command{
	Use:   "details <alert-id>",
	Short: "Show the details of an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsDetails,
}

func init() {
	f := alertsListCmd.Flags()
	f.IntVarP(&alertLimit, "limit", "n", 50, "max alerts")
	f.IntVar(&alertOffset, "offset", 0, "skip this many alerts")
	f.StringVarP(&alertProject, "project", "p", "", "only alerts of this project (upload token)")
	f.StringVarP(&alertRecord, "record", "r", "", "only alerts of this record")
	f.StringVar(&alertSince, "since", "", "only alerts modified since (YYYY-MM-DD)")
	f.BoolVar(&alertUnseen, "unseen", false, "only unseen alerts")
	f.BoolVar(&alertArchived, "archived", false, "only archived alerts")

	alertsEditCmd.Flags().BoolVar(&alertSeen, "seen", false, "set the seen flag")
	alertsEditCmd.Flags().BoolVar(&alertArchive, "archived", false, "set the archived flag")

	alertsCmd.AddCommand(alertsListCmd, alertsEditCmd, alertsDetailsCmd)
}

func runAlertsList(cmd *cobra.Command, args []string) error {
	filter := matchlight.AlertFilter{Limit: alertLimit, Offset: alertOffset}
	if alertProject != "" {
		filter.Project = matchlight.UploadToken(alertProject)
	}
	if alertRecord != "" {
		filter.Record = matchlight.RecordID(alertRecord)
	}
	if alertSince != "" {
		since, err := parseDate(alertSince)
		if err != nil {
			return err
		}
		filter.LastModified = since
	}
	if alertUnseen {
		seen := false
		filter.Seen = &seen
	}
	if alertArchived {
		archived := true
		filter.Archived = &archived
	}

	alerts, err := ml.Alerts.Filter(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	for _, a := range alerts {
		state := ""
		if !a.Seen {
			state = defaultTheme.statusStyle().Render("new")
		}
		if a.Archived {
			state = defaultTheme.hintStyle().Render("archived")
		}
		fmt.Printf("#%-6d %-19s %-8s %-8s %s\n", a.Number, a.Date().Format(time.DateTime), a.Type, state, a.URL)
		fmt.Println(defaultTheme.hintStyle().Render("        " + a.ID))
	}
	return nil
}

func runAlertsEdit(cmd *cobra.Command, args []string) error {
	var seen, archived *bool
	if cmd.Flags().Changed("seen") {
		seen = &alertSeen
	}
	if cmd.Flags().Changed("archived") {
		archived = &alertArchive
	}
	if seen == nil && archived == nil {
		return fmt.Errorf("nothing to change: pass --seen or --archived")
	}

	state, err := ml.Alerts.Edit(context.Background(), matchlight.AlertID(args[0]), seen, archived)
	if err != nil {
		return fmt.Errorf("edit alert: %w", err)
	}
	fmt.Printf("Alert %s: seen=%t archived=%t\n", args[0], state.Seen, state.Archived)
	return nil
}

func runAlertsDetails(cmd *cobra.Command, args []string) error {
	details, err := ml.Alerts.Details(context.Background(), matchlight.AlertID(args[0]))
	if err != nil {
		return fmt.Errorf("alert details: %w", err)
	}
	if details == nil {
		return fmt.Errorf("alert %s: %w", args[0], matchlight.ErrNotFound)
	}
	out, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
