package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Table", "Error Rate", "Questions"}
	rows := [][]string{
		{"7", "40.0%", "12"},
		{"12", "8.0%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Table Error Rate Questions" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "7          40.0%        12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12          8.0%         3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableUsesCellWidth(t *testing.T) {
	lines := formatTable([]string{"Player", "Coins"}, [][]string{{"小明", "5"}, {"Ada", "12"}}, map[int]bool{1: true})
	if lines[1] != "小明       5" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Ada       12" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}
