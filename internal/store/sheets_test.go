package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestStore(t *testing.T) *SheetStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sheets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWorkflowState(t *testing.T) {
	assert.Equal(t, "before_data", WorkflowState("before"))
	assert.Equal(t, "after_data", WorkflowState(" after "))
	assert.Equal(t, NullState, WorkflowState(""))
	assert.Equal(t, "midway_data", WorkflowState("midway"), "configured groups beyond before/after keep their tag")
}

func TestAppend_CreatesHeaderAndSharesTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	batch, err := s.Append(ctx, "Final Response Compare & Preferences Sheet", []Row{
		{Email: "a@graas.ai", Question: "Q1", PreferredResponse: "r1", ModelUsed: "GPT-5", WorkflowState: "after_data"},
		{Email: "a@graas.ai", Question: "Q2", PreferredResponse: "r2", ModelUsed: "Claude-Sonnet-4.5"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, batch)

	header, err := s.Header(ctx, "Final Response Compare & Preferences Sheet")
	require.NoError(t, err)
	assert.Equal(t, Header, header)

	rows, err := s.Rows(ctx, "Final Response Compare & Preferences Sheet")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, fixed.Equal(r.Timestamp), "got %v", r.Timestamp)
		assert.Equal(t, batch, r.BatchID)
	}
	assert.Equal(t, "after_data", rows[0].WorkflowState)
	assert.Equal(t, NullState, rows[1].WorkflowState)
}

func TestAppend_SecondBatchKeepsOneHeader(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, "sheet", []Row{{Email: "a@x.io", Question: "Q1"}})
	require.NoError(t, err)
	second, err := s.Append(ctx, "sheet", []Row{{Email: "b@x.io", Question: "Q2"}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	grid, err := s.Values(ctx, "sheet")
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, Header, grid[0])
	assert.Equal(t, "Q1", grid[1][2])
	assert.Equal(t, "Q2", grid[2][2])

	names, err := s.Sheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sheet"}, names)
}

func TestAppend_EmptyBatchStillCreatesSheet(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append(context.Background(), "empty", nil)
	require.NoError(t, err)

	grid, err := s.Values(context.Background(), "empty")
	require.NoError(t, err)
	assert.Equal(t, [][]string{Header}, grid)
}

func TestAppend_RequiresSheetName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Append(context.Background(), "  ", []Row{{Email: "a@x.io"}})
	assert.Error(t, err)
}

func TestUnknownSheet(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Rows(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSheet)
	assert.ErrorIs(t, s.ExportXLSX(context.Background(), &bytes.Buffer{}, nil), ErrUnknownSheet)
}

func TestExportCSV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	_, err := s.Append(ctx, "sheet", []Row{{Email: "a@x.io", Question: "Q, with comma", PreferredResponse: "line1\nline2", ModelUsed: "GPT-4o", WorkflowState: "before_data"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(ctx, &buf, "sheet"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		Header,
		{"2025-01-02T03:04:05Z", "a@x.io", "Q, with comma", "line1\nline2", "GPT-4o", "before_data"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	long := "Entire Workflow Compare & Preferences Sheet"
	_, err := s.Append(ctx, long, []Row{{Email: "a@x.io", Question: "Q1", ModelUsed: "GPT-4o"}})
	require.NoError(t, err)
	_, err = s.Append(ctx, "Final Response Compare & Preferences Sheet", []Row{{Email: "b@x.io", Question: "Q2"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportXLSX(ctx, &buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 2)
	for _, name := range sheets {
		assert.LessOrEqual(t, len([]rune(name)), 31)
	}
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Q1", rows[1][2])
}

func TestWorksheetTitle(t *testing.T) {
	used := map[string]bool{}
	a := worksheetTitle("Entire Workflow Compare & Preferences Sheet", used)
	b := worksheetTitle("Entire Workflow Compare & Preferences Sheet v2", used)
	assert.LessOrEqual(t, len([]rune(a)), 31)
	assert.LessOrEqual(t, len([]rune(b)), 31)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(b, "(2)"))
	assert.Equal(t, "a_b_c", worksheetTitle("a/b?c", used))
	assert.Equal(t, "Sheet", worksheetTitle("  ", used))
}
