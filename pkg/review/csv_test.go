package review

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestToCSVCellsAreJSON(t *testing.T) {
	header := []string{"name", "count", "ratio"}
	rows := []map[string]any{
		{"name": `quoting "trouble", inc.`, "count": 3, "ratio": 0.5},
	}

	out := ToCSV(header, rows)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "name,count,ratio" {
		t.Errorf("Unexpected header: %q", lines[0])
	}

	// The string cell must decode back to the original value.
	cells := splitJSONCells(t, lines[1])
	if len(cells) != 3 {
		t.Fatalf("Expected 3 cells, got %d: %q", len(cells), lines[1])
	}
	var name string
	if err := json.Unmarshal([]byte(cells[0]), &name); err != nil {
		t.Fatalf("Name cell is not valid JSON: %v", err)
	}
	if name != `quoting "trouble", inc.` {
		t.Errorf("Round-trip mismatch: %q", name)
	}
	if cells[1] != "3" {
		t.Errorf("Numbers must stay bare, got %q", cells[1])
	}
}

func TestToCSVMissingKey(t *testing.T) {
	out := ToCSV([]string{"a", "b"}, []map[string]any{{"a": 1}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[1] != `1,""` {
		t.Errorf(`Expected missing key to render as "", got %q`, lines[1])
	}
}

func TestReviewerCSVRepoColumns(t *testing.T) {
	summaries := []ReviewerSummary{
		{Reviewer: "bob", TotalReviews: 3, CountsByRepo: map[string]int{"web": 2, "api": 1}},
		{Reviewer: "carol", TotalReviews: 1, CountsByRepo: map[string]int{"api": 1}},
	}

	out := ReviewerCSV(summaries)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus two rows, got %d lines", len(lines))
	}

	header := lines[0]
	// Repo columns appear sorted and after the fixed columns.
	if !strings.HasSuffix(header, "reviews_api,reviews_web") {
		t.Errorf("Expected sorted repo columns at the end, got %q", header)
	}

	// Carol reviewed nothing in web, so the cell is an explicit zero.
	if !strings.HasSuffix(lines[2], "1,0") {
		t.Errorf("Expected api=1 web=0 for carol, got %q", lines[2])
	}
}

func TestAuthorCSVShape(t *testing.T) {
	summaries := []AuthorSummary{
		{Author: "alice", PRsAuthored: 4, QualityScore: 85, CountsByRepo: map[string]int{"api": 4}},
	}

	out := AuthorCSV(summaries)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	headerCols := strings.Split(lines[0], ",")
	rowCells := splitJSONCells(t, lines[1])
	if len(headerCols) != len(rowCells) {
		t.Errorf("Header has %d columns but row has %d cells", len(headerCols), len(rowCells))
	}
	if headerCols[0] != "author" || headerCols[len(headerCols)-1] != "prs_api" {
		t.Errorf("Unexpected column layout: %v", headerCols)
	}
	if rowCells[0] != `"alice"` {
		t.Errorf("Expected JSON-quoted author, got %q", rowCells[0])
	}
}

// splitJSONCells splits a CSV data row on commas outside JSON strings.
func splitJSONCells(t *testing.T, line string) []string {
	t.Helper()
	var cells []string
	var cur strings.Builder
	inString := false
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
			cur.WriteRune(r)
		case r == '\\' && inString:
			escaped = true
			cur.WriteRune(r)
		case r == '"':
			inString = !inString
			cur.WriteRune(r)
		case r == ',' && !inString:
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	cells = append(cells, cur.String())
	return cells
}
