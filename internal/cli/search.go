package cli

import (
	"context"
	"fmt"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/spf13/cobra"
)

var (
	searchEmail        string
	searchSSN          string
	searchPhone        string
	searchFingerprints []string
	searchLimit        int
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search for content matching a text or PII value",
	Long: `Search the Matchlight index retrospectively.

Pass exactly one of: a text argument, --email, --ssn, --phone or
--fingerprints. Every matching artifact is listed once per URL it was
seen at, oldest first.

Examples:
  matchlight search "internal use only"
  matchlight search --email familybird@terbiumlabs.com
  matchlight search --phone 804-222-1111 -n 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchEmail, "email", "", "search for an email address")
	searchCmd.Flags().StringVar(&searchSSN, "ssn", "", "search for a social security number")
	searchCmd.Flags().StringVar(&searchPhone, "phone", "", "search for a phone number")
	searchCmd.Flags().StringSliceVar(&searchFingerprints, "fingerprints", nil, "search for precomputed fingerprints")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (0 = all)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	q := matchlight.SearchQuery{
		Email:        searchEmail,
		SSN:          searchSSN,
		Phone:        searchPhone,
		Fingerprints: searchFingerprints,
	}
	if len(args) == 1 {
		q.Text = args[0]
	}

	results, err := ml.Search.Search(ctx, q)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if results.Len() == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", results.Len())
	n := 0
	for r := range results.All() {
		if searchLimit > 0 && n == searchLimit {
			break
		}
		n++
		score := defaultTheme.statusStyle().Render(fmt.Sprintf("[%3.0f]", r.Score))
		fmt.Printf("%s %s  %s\n", score, r.TS.Format(time.DateTime), r.URL)
	}
	if n < results.Len() {
		fmt.Println(defaultTheme.hintStyle().Render(fmt.Sprintf("\n%d more not shown", results.Len()-n)))
	}

	return nil
}
