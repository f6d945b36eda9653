package main

import (
	"fmt"
	"strings"

	"prefsurvey/cmd/prefsurvey/ui"
	"prefsurvey/internal/pool"

	"github.com/spf13/cobra"
)

// poolCmd groups question pool commands
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect question pools",
}

var poolPreviewCmd = &cobra.Command{
	Use:   "preview [form]",
	Short: "Build a form's pool and list it as a respondent would see it",
	Long: `Loads every group source of the form, applies sampling and slot
randomization, and prints the resulting pool. Use --seed for a repeatable order.

The form defaults to survey.default_form.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPoolPreview,
}

var previewShowModels bool

func init() {
	poolPreviewCmd.Flags().BoolVar(&previewShowModels, "models", false, "Show which model occupies each slot")
	poolCmd.AddCommand(poolPreviewCmd)
}

func runPoolPreview(cmd *cobra.Command, args []string) error {
	form := cfg.Survey.DefaultForm
	if len(args) == 1 {
		form = args[0]
	}
	if form == "" && len(cfg.Survey.Forms) > 0 {
		form = cfg.Survey.Forms[0].Key
	}

	items, err := newPoolFunc(cfg, configDir(configPath), seed)(cmd.Context(), form)
	if err != nil {
		return err
	}

	headers := []string{"#", "ID", "Group", "Question"}
	if previewShowModels {
		headers = append(headers, "A", "B")
	}
	table := ui.NewSimpleTable(fmt.Sprintf("Form %q: %d items", form, len(items)), headers)
	table.MaxCellWidth = 60
	for i, it := range items {
		row := []string{fmt.Sprint(i + 1), it.ID, it.Group, it.Question}
		if previewShowModels {
			a, _ := it.Candidate(pool.SlotA)
			b, _ := it.Candidate(pool.SlotB)
			row = append(row, a.Model, b.Model)
		}
		table.AddRow(row...)
	}

	out := table.View(ui.NewStyles(ui.DetectTheme(cfg.UI.DarkMode)))
	fmt.Fprint(cmd.OutOrStdout(), strings.TrimRight(out, "\n")+"\n")
	return nil
}
