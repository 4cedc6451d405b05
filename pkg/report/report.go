// Package report assembles monthly review reports and handles their
// on-disk layout. A month's output is three files: a JSON document with
// the full detail and two CSV files flattening the reviewer and author
// summaries.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

// Report is the complete document for one month of review activity.
type Report struct {
	Month         string                   `json:"month"` // YYYY-MM
	Org           string                   `json:"org"`
	Repos         []string                 `json:"repos"`
	GeneratedAt   time.Time                `json:"generated_at"`
	Summary       []review.ReviewerSummary `json:"summary"`
	AuthorSummary []review.AuthorSummary   `json:"author_summary"`
	TeamSummary   review.TeamSummary       `json:"team_summary"`
	Details       []review.EnrichedPR      `json:"details"`
}

// ErrNotFound marks a month with no stored report.
var ErrNotFound = errors.New("report not found")

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidMonth reports whether s is a YYYY-MM month string.
func ValidMonth(s string) bool {
	return monthRe.MatchString(s)
}

// MonthWindow converts a YYYY-MM month into its UTC [start, end) window.
func MonthWindow(month string) (start, end time.Time, err error) {
	if !ValidMonth(month) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, want YYYY-MM", month)
	}
	start, err = time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// PreviousMonth returns the YYYY-MM month before t.
func PreviousMonth(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format("2006-01")
}

// Build assembles a report from enriched PRs by running the full
// aggregation pass.
func Build(org, month string, repos []string, details []review.EnrichedPR, cfg review.Config) *Report {
	reviewers, authors, team := review.Summarize(details, cfg)
	return &Report{
		Month:         month,
		Org:           org,
		Repos:         slices.Clone(repos),
		GeneratedAt:   time.Now().UTC(),
		Summary:       reviewers,
		AuthorSummary: authors,
		TeamSummary:   team,
		Details:       details,
	}
}

func jsonPath(dir, month string) string {
	return filepath.Join(dir, "pr-reviews-"+month+".json")
}

// WriteFiles writes the month's three output files into dir, creating it
// if needed. Existing files for the same month are overwritten.
func (r *Report) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath(dir, r.Month), data, 0o644); err != nil {
		return fmt.Errorf("write report JSON: %w", err)
	}

	reviewerCSV := review.ReviewerCSV(r.Summary)
	if err := os.WriteFile(filepath.Join(dir, "pr-reviews-"+r.Month+".csv"), []byte(reviewerCSV), 0o644); err != nil {
		return fmt.Errorf("write reviewer CSV: %w", err)
	}

	authorCSV := review.AuthorCSV(r.AuthorSummary)
	if err := os.WriteFile(filepath.Join(dir, "pr-authors-"+r.Month+".csv"), []byte(authorCSV), 0o644); err != nil {
		return fmt.Errorf("write author CSV: %w", err)
	}

	return nil
}

// Load reads the stored JSON report for a month. Returns ErrNotFound
// when the month has never been collected.
func Load(dir, month string) (*Report, error) {
	if !ValidMonth(month) {
		return nil, fmt.Errorf("invalid month %q, want YYYY-MM", month)
	}

	data, err := os.ReadFile(jsonPath(dir, month))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, month)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", month, err)
	}
	return &r, nil
}

var reportFileRe = regexp.MustCompile(`^pr-reviews-(\d{4}-\d{2})\.json$`)

// List returns the months with stored reports, newest first. A missing
// directory is an empty list, not an error.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	var months []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := reportFileRe.FindStringSubmatch(entry.Name())
		if m == nil || !ValidMonth(m[1]) {
			continue
		}
		months = append(months, m[1])
	}

	slices.Sort(months)
	slices.Reverse(months)
	return months, nil
}
