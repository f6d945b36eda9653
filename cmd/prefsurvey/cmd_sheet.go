package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"prefsurvey/internal/store"

	"github.com/spf13/cobra"
)

// sheetCmd groups commands over the receiver's sheet store
var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "List and export stored preference sheets",
}

var sheetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sheets and their row counts",
	Args:  cobra.NoArgs,
	RunE:  runSheetList,
}

var sheetExportCmd = &cobra.Command{
	Use:   "export [sheet...]",
	Short: "Export sheets as CSV or XLSX",
	Long: `Writes stored rows with their header row.

CSV exports exactly one sheet. XLSX exports the named sheets, or every sheet
when none is named, one worksheet each. The format defaults to the --out file
extension, then to csv.`,
	RunE: runSheetExport,
}

var (
	exportFormat string
	exportOut    string
)

func init() {
	sheetExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv or xlsx")
	sheetExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	sheetCmd.AddCommand(sheetListCmd)
	sheetCmd.AddCommand(sheetExportCmd)
}

func runSheetList(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Receiver.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	names, err := st.Sheets(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sheets yet.")
		return nil
	}
	for _, name := range names {
		rows, err := st.Rows(cmd.Context(), name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", name, len(rows))
	}
	return nil
}

func runSheetExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(exportOut)), ".")
	}
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unsupported export format %q (valid: csv, xlsx)", format)
	}
	if format == "csv" && len(args) != 1 {
		return fmt.Errorf("csv export needs exactly one sheet name, got %d", len(args))
	}

	st, err := store.Open(cfg.Receiver.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		err = st.ExportCSV(cmd.Context(), w, args[0])
	} else {
		err = st.ExportXLSX(cmd.Context(), w, args)
	}
	if err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOut)
	}
	return nil
}
