package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"prefsurvey/internal/logging"

	"github.com/xuri/excelize/v2"
)

// ExportCSV writes one sheet, header included, as CSV.
func (s *SheetStore) ExportCSV(ctx context.Context, w io.Writer, sheet string) error {
	grid, err := s.Values(ctx, sheet)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(grid); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExportXLSX writes the named sheets (all when names is empty) into one
// workbook, one worksheet per sheet.
func (s *SheetStore) ExportXLSX(ctx context.Context, w io.Writer, names []string) error {
	timer := logging.StartTimer(logging.CategoryStore, "ExportXLSX")
	defer timer.Stop()

	if len(names) == 0 {
		var err error
		if names, err = s.Sheets(ctx); err != nil {
			return err
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: nothing has been stored yet", ErrUnknownSheet)
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, name := range names {
		grid, err := s.Values(ctx, name)
		if err != nil {
			return err
		}
		title := worksheetTitle(name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", title); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(title); err != nil {
			return err
		}
		for r, values := range grid {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			row := make([]any, len(values))
			for c, v := range values {
				row[c] = v
			}
			if err := f.SetSheetRow(title, cell, &row); err != nil {
				return fmt.Errorf("failed to write %q row %d: %w", name, r, err)
			}
		}
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

const maxTitleLen = 31

// worksheetTitle fits a sheet name into a worksheet title: at most 31
// characters, none of : \ / ? * [ ], unique within the workbook.
func worksheetTitle(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Sheet"
	}
	base := truncateRunes(clean, maxTitleLen)
	title := base
	for n := 2; used[strings.ToLower(title)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		title = truncateRunes(clean, maxTitleLen-len(suffix)) + suffix
	}
	used[strings.ToLower(title)] = true
	return title
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
