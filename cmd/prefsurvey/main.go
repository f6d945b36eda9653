// Command prefsurvey runs the response preference survey: an interactive
// terminal client that collects pairwise preferences, and the receiver that
// persists them.
package main

import (
	"fmt"
	"os"

	"prefsurvey/internal/config"
	"prefsurvey/internal/logging"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool
	darkMode   bool
	seed       uint64

	// cfg is loaded once per invocation by PersistentPreRunE.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prefsurvey",
	Short: "Pairwise AI response preference survey",
	Long: `prefsurvey shows a respondent a sequence of questions, each answered by two
AI models under neutral labels, and records which response they prefer.

Run without arguments to start the interactive survey. Use "prefsurvey serve"
to run the endpoint that stores submitted preferences.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if darkMode {
			cfg.UI.DarkMode = true
		}

		// The interactive survey owns the terminal; everything else may log to stderr.
		console := cmd != cmd.Root()
		if err := logging.Initialize(loggingOptions(cfg.Logging, console, verbose)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("prefsurvey %s: config %s, command %q", version, configPath, cmd.Name())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
	RunE: runSurvey,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "prefsurvey %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&darkMode, "dark", false, "Force the dark color theme")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed for sampling and slot order (0 = random)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(poolCmd)
	rootCmd.AddCommand(sheetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
