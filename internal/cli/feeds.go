package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	feedStart string
	feedEnd   string
	feedOut   string
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List, count and download alert feeds",
	RunE:  runFeedsList,
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feeds available to the account",
	Args:  cobra.NoArgs,
	RunE:  runFeedsList,
}

var feedsCountsCmd = &cobra.Command{
	Use:   "counts <feed>",
	Short: "Show daily alert counts for a feed",
	Long: `Show daily alert counts for a feed between --start and --end.

Example:
  matchlight feeds counts pii-feed --start 2016-08-26 --end 2016-09-01`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedsCounts,
}

var feedsDownloadCmd = &cobra.Command{
	Use:   "download <feed>",
	Short: "Export a feed as CSV",
	Long: `Export a feed for a date range. The export is prepared by the service,
polled until ready and then downloaded.

With --out the raw CSV is written to a file, otherwise rows are printed.

Example:
  matchlight feeds download pii-feed --start 2016-08-26 --end 2016-09-01 --out feed.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedsDownload,
}

func init() {
	for _, c := range []*cobra.Command{feedsCountsCmd, feedsDownloadCmd} {
		c.Flags().StringVar(&feedStart, "start", "", "start date (YYYY-MM-DD)")
		c.Flags().StringVar(&feedEnd, "end", "", "end date (YYYY-MM-DD, default today)")
		_ = c.MarkFlagRequired("start")
	}
	feedsDownloadCmd.Flags().StringVarP(&feedOut, "out", "o", "", "write the raw export to this file")

	feedsCmd.AddCommand(feedsListCmd, feedsCountsCmd, feedsDownloadCmd)
}

func feedRange() (time.Time, time.Time, error) {
	start, err := parseDate(feedStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := time.Now().UTC()
	if feedEnd != "" {
		if end, err = parseDate(feedEnd); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

func runFeedsList(cmd *cobra.Command, args []string) error {
	feeds, err := ml.Feeds.All(context.Background())
	if err != nil {
		return fmt.Errorf("list feeds: %w", err)
	}
	if len(feeds) == 0 {
		fmt.Println("No feeds.")
		return nil
	}

	fmt.Printf("%-24s %-8s %-12s %-12s %s\n", "NAME", "RECENT", "START", "END", "DESCRIPTION")
	fmt.Printf("%-24s %-8s %-12s %-12s %s\n", "----", "------", "-----", "---", "-----------")
	for _, f := range feeds {
		end := "-"
		if t := f.End(); !t.IsZero() {
			end = t.Format(time.DateOnly)
		}
		fmt.Printf("%-24s %-8d %-12s %-12s %s\n",
			f.Name, f.RecentAlertsCount, f.Start().Format(time.DateOnly), end, f.Description)
	}
	return nil
}

func runFeedsCounts(cmd *cobra.Command, args []string) error {
	start, end, err := feedRange()
	if err != nil {
		return err
	}
	counts, err := ml.Feeds.Counts(context.Background(), matchlight.FeedName(args[0]), start, end)
	if err != nil {
		return fmt.Errorf("feed counts: %w", err)
	}
	if len(counts) == 0 {
		fmt.Println("No alerts in range.")
		return nil
	}

	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	slices.Sort(days)

	total := 0
	for _, d := range days {
		fmt.Printf("%s  %6d\n", d, counts[d])
		total += counts[d]
	}
	fmt.Printf("%s\n%-10s  %6d\n", strings.Repeat("-", 18), "total", total)
	return nil
}

func runFeedsDownload(cmd *cobra.Command, args []string) error {
	start, end, err := feedRange()
	if err != nil {
		return err
	}
	feed := matchlight.FeedName(args[0])
	ctx := context.Background()

	var rows []matchlight.FeedRow
	if term.IsTerminal(int(os.Stdout.Fd())) {
		rows, err = runExportProgress(ctx, feed, start, end, feedOut)
	} else {
		rows, err = ml.Feeds.Download(ctx, feed, start, end, matchlight.DownloadOptions{SavePath: feedOut})
	}
	if err != nil {
		return fmt.Errorf("download feed %s: %w", feed, err)
	}
	if feedOut != "" {
		return nil
	}

	for _, row := range rows {
		cols := make([]string, 0, len(row.Columns))
		for k, v := range row.Columns {
			cols = append(cols, k+"="+v)
		}
		slices.Sort(cols)
		fmt.Printf("%s  %s\n", row.TS.Format(time.DateTime), strings.Join(cols, " "))
	}
	return nil
}
