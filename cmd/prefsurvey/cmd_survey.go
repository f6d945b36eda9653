package main

import (
	"fmt"

	"prefsurvey/cmd/prefsurvey/survey"
	"prefsurvey/cmd/prefsurvey/ui"
	"prefsurvey/internal/logging"
	"prefsurvey/internal/session"
	"prefsurvey/internal/submit"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// runSurvey starts the interactive client.
func runSurvey(cmd *cobra.Command, args []string) error {
	client := submit.NewClient(cfg.Endpoint.URL, cfg.EndpointTimeout())
	if err := client.Ready(); err != nil {
		// Not fatal: the respondent is told when they try to submit.
		logging.Get(logging.CategoryBoot).Warn("endpoint not ready: %v", err)
	}

	m := survey.New(survey.Config{
		Session:    sessionOptions(cfg),
		LoadPool:   newPoolFunc(cfg, configDir(configPath), seed),
		Dispatcher: client,
		Styles:     ui.NewStyles(ui.DetectTheme(cfg.UI.DarkMode)),
	})
	defer m.Shutdown()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return fmt.Errorf("survey: %w", err)
	}

	if fm, ok := final.(survey.Model); ok {
		s := fm.Session()
		if s.Screen() == session.ScreenComplete {
			recorded := s.Answered() - s.Undelivered()
			fmt.Fprintf(cmd.OutOrStdout(), "Thank you, %s. %d of %d responses recorded.\n", s.Email(), recorded, s.Len())
		}
	}
	return nil
}
