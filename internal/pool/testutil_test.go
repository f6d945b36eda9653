package pool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

// TestMain checks that concurrent source fetches leave no goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// mapFetcher serves sources from memory.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, location string) ([]byte, string, error) {
	data, ok := m[location]
	if !ok {
		return nil, "", fmt.Errorf("no such source %q", location)
	}
	return data, "", nil
}

// csvSource renders a header plus n generated rows.
func csvSource(header []string, n int) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(header, ",") + "\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Question %d,resp-x-%d,resp-y-%d\n", i, i, i)
	}
	return []byte(sb.String())
}

// xlsxSource builds a single-sheet workbook.
func xlsxSource(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("SetSheetRow header: %v", err)
	}
	for i, r := range rows {
		row := r
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow %d: %v", i, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func beforeSource(location string) GroupSource {
	return GroupSource{
		Group:    "before",
		Location: location,
		Models: [2]ModelColumn{
			{Name: "Claude-4.5-Haiku"},
			{Name: "GPT-4o"},
		},
	}
}

func afterSource(location string) GroupSource {
	return GroupSource{
		Group:    "after",
		Location: location,
		Models: [2]ModelColumn{
			{Name: "GPT-5"},
			{Name: "Claude-Sonnet-4.5"},
		},
	}
}

func makeGroup(group string, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID:       ItemID(group, i),
			Question: fmt.Sprintf("q%d", i),
			Group:    group,
			Slots: map[Slot]Candidate{
				SlotA: {Model: "x", Text: "a"},
				SlotB: {Model: "y", Text: "b"},
			},
		}
	}
	return items
}
