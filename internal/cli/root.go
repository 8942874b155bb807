// Package cli provides the command-line interface for matchlight.
package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/raphaelgruber/matchlight-go/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Global config and client
	cfg      config.Config
	ml       *matchlight.Client
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "matchlight",
	Short: "Matchlight fingerprint monitoring client",
	Long: `Matchlight registers fingerprints of documents, source code and PII
with the Matchlight service and reports where matching content shows up.

Credentials are read from MATCHLIGHT_ACCESS_KEY and MATCHLIGHT_SECRET_KEY
or from a YAML file passed with --config.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip client setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if configPath != "" {
			var err error
			if cfg, err = config.LoadFile(configPath, cfg); err != nil {
				return err
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		var err error
		ml, err = matchlight.New(cfg, matchlight.WithLogger(logger))
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && ml != nil {
			printStats(ml.Stats())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and request statistics")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	// Add subcommands
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(alertsCmd)
}

// parseDate accepts YYYY-MM-DD (UTC midnight) or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is a no.
func confirm(prompt string) (bool, error) {
	fmt.Printf("%s\n\nContinue? [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
