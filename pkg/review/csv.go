package review

import (
	"encoding/json"
	"slices"
	"strings"
)

// ToCSV renders rows as CSV with every cell JSON-encoded, so strings are
// quoted and escaped and numbers stay bare. Columns come from header in
// order; a key missing from a row renders as an empty quoted string.
func ToCSV(header []string, rows []map[string]any) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(header))
		for i, key := range header {
			v, ok := row[key]
			if !ok {
				v = ""
			}
			enc, err := json.Marshal(v)
			if err != nil {
				enc = []byte(`""`)
			}
			cells[i] = string(enc)
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}

	return b.String()
}

// reviewerColumns lists the fixed reviewer CSV columns in output order.
var reviewerColumns = []string{
	"reviewer", "total_reviews", "prs_reviewed", "approvals",
	"changes_requested", "comment_only_reviews", "no_comment_approvals",
	"inline_comments", "conversation_comments", "median_response_hours",
	"p90_response_hours", "fastest_response_hours", "avg_pr_size",
	"avg_prod_size", "avg_test_size", "avg_iterations", "avg_close_hours",
	"multi_round_prs",
}

// authorColumns lists the fixed author CSV columns in output order.
var authorColumns = []string{
	"author", "prs_authored", "merged_prs", "avg_pr_size", "avg_prod_size",
	"avg_test_size", "avg_prod_files", "avg_iterations", "avg_commits",
	"avg_churn_pct", "avg_file_churn", "median_response_hours",
	"p90_response_hours", "avg_merge_hours", "median_merge_hours",
	"quality_score",
}

// ReviewerCSV flattens reviewer summaries into CSV, appending one
// reviews_<repo> column per repo seen anywhere in the batch, in sorted
// repo order so the header is stable across runs.
func ReviewerCSV(summaries []ReviewerSummary) string {
	repos := repoColumns(summaries, func(s ReviewerSummary) map[string]int { return s.CountsByRepo })

	header := slices.Clone(reviewerColumns)
	for _, repo := range repos {
		header = append(header, "reviews_"+repo)
	}

	rows := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		row := map[string]any{
			"reviewer":               s.Reviewer,
			"total_reviews":          s.TotalReviews,
			"prs_reviewed":           s.PRsReviewed,
			"approvals":              s.Approvals,
			"changes_requested":      s.ChangesRequested,
			"comment_only_reviews":   s.CommentOnlyReviews,
			"no_comment_approvals":   s.NoCommentApprovals,
			"inline_comments":        s.InlineComments,
			"conversation_comments":  s.ConversationComments,
			"median_response_hours":  s.MedianResponseHours,
			"p90_response_hours":     s.P90ResponseHours,
			"fastest_response_hours": s.FastestResponseHours,
			"avg_pr_size":            s.AvgPRSize,
			"avg_prod_size":          s.AvgProdSize,
			"avg_test_size":          s.AvgTestSize,
			"avg_iterations":         s.AvgIterations,
			"avg_close_hours":        s.AvgCloseHours,
			"multi_round_prs":        s.MultiRoundPRs,
		}
		for _, repo := range repos {
			row["reviews_"+repo] = s.CountsByRepo[repo]
		}
		rows = append(rows, row)
	}

	return ToCSV(header, rows)
}

// AuthorCSV flattens author summaries into CSV with one prs_<repo>
// column per repo seen in the batch.
func AuthorCSV(summaries []AuthorSummary) string {
	repos := repoColumns(summaries, func(s AuthorSummary) map[string]int { return s.CountsByRepo })

	header := slices.Clone(authorColumns)
	for _, repo := range repos {
		header = append(header, "prs_"+repo)
	}

	rows := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		row := map[string]any{
			"author":                s.Author,
			"prs_authored":          s.PRsAuthored,
			"merged_prs":            s.MergedPRs,
			"avg_pr_size":           s.AvgPRSize,
			"avg_prod_size":         s.AvgProdSize,
			"avg_test_size":         s.AvgTestSize,
			"avg_prod_files":        s.AvgProdFiles,
			"avg_iterations":        s.AvgIterations,
			"avg_commits":           s.AvgCommits,
			"avg_churn_pct":         s.AvgChurnPct,
			"avg_file_churn":        s.AvgFileChurn,
			"median_response_hours": s.MedianResponseHours,
			"p90_response_hours":    s.P90ResponseHours,
			"avg_merge_hours":       s.AvgMergeHours,
			"median_merge_hours":    s.MedianMergeHours,
			"quality_score":         s.QualityScore,
		}
		for _, repo := range repos {
			row["prs_"+repo] = s.CountsByRepo[repo]
		}
		rows = append(rows, row)
	}

	return ToCSV(header, rows)
}

// repoColumns collects the union of repo names across summaries, sorted.
func repoColumns[T any](summaries []T, counts func(T) map[string]int) []string {
	seen := make(map[string]bool)
	for _, s := range summaries {
		for repo := range counts(s) {
			seen[repo] = true
		}
	}
	repos := make([]string, 0, len(seen))
	for repo := range seen {
		repos = append(repos, repo)
	}
	slices.Sort(repos)
	return repos
}
