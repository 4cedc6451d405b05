package review

import (
	"strings"
	"time"
)

// ReduceActivity merges review submissions, inline comments, and
// conversation comments into enriched reviews and the PR's first
// non-author response timestamp.
//
// A review's first activity is the earliest of its submission time, its
// inline comment times, and every conversation comment by the same
// reviewer. The PR-level first response is the earliest activity by any
// participant other than the author; the author's own comments and
// reviews never count as a response. Returns nil when no qualifying
// timestamp exists.
func ReduceActivity(author string, reviews []Review, conversation []Comment) (enriched []EnrichedReview, firstResponseAt *time.Time) {
	conversationByAuthor := make(map[string][]time.Time)
	for _, c := range conversation {
		conversationByAuthor[c.Author] = append(conversationByAuthor[c.Author], c.CreatedAt)
	}

	var firstResponse time.Time

	for _, rev := range reviews {
		timestamps := make([]time.Time, 0, 1+len(rev.InlineComments))
		if !rev.SubmittedAt.IsZero() {
			timestamps = append(timestamps, rev.SubmittedAt)
		}
		for _, c := range rev.InlineComments {
			if !c.CreatedAt.IsZero() {
				timestamps = append(timestamps, c.CreatedAt)
			}
		}
		for _, ts := range conversationByAuthor[rev.Reviewer] {
			if !ts.IsZero() {
				timestamps = append(timestamps, ts)
			}
		}

		convCount := len(conversationByAuthor[rev.Reviewer])

		er := EnrichedReview{
			Review:                   rev,
			FirstActivityAt:          earliest(timestamps),
			HasComments:              strings.TrimSpace(rev.Body) != "" || len(rev.InlineComments) > 0 || convCount > 0,
			InlineCommentCount:       len(rev.InlineComments),
			ConversationCommentCount: convCount,
		}
		enriched = append(enriched, er)

		if rev.Reviewer != author {
			for _, ts := range timestamps {
				if firstResponse.IsZero() || ts.Before(firstResponse) {
					firstResponse = ts
				}
			}
		}
	}

	// Conversation comments count as responses even when their author
	// never submitted a formal review.
	for _, c := range conversation {
		if c.Author == author || c.CreatedAt.IsZero() {
			continue
		}
		if firstResponse.IsZero() || c.CreatedAt.Before(firstResponse) {
			firstResponse = c.CreatedAt
		}
	}

	if firstResponse.IsZero() {
		return enriched, nil
	}
	return enriched, &firstResponse
}

// earliest returns the smallest timestamp, keeping the first-seen value
// on an exact tie. Zero when the list is empty.
func earliest(timestamps []time.Time) time.Time {
	var min time.Time
	for _, ts := range timestamps {
		if min.IsZero() || ts.Before(min) {
			min = ts
		}
	}
	return min
}

// Enrich folds one PR's raw bundle into the record the aggregators
// consume. An errored bundle passes its error through with degenerate
// metrics so the PR still occupies a slot in the report details.
func Enrich(bundle PRBundle, cfg Config) EnrichedPR {
	if bundle.Error != "" {
		return EnrichedPR{
			PullRequest: bundle.PR,
			Error:       bundle.Error,
		}
	}

	metrics := ClassifyFiles(bundle.Files, cfg.TestPathPatterns)
	churn := Churn(bundle.Commits)
	reviews, firstResponseAt := ReduceActivity(bundle.PR.Author, bundle.Reviews, bundle.ConversationComments)

	// Only formal submissions count as iterations. Comment-only
	// participation carries no submission timestamp.
	iterations := 0
	for _, rev := range bundle.Reviews {
		if !rev.SubmittedAt.IsZero() {
			iterations++
		}
	}

	return EnrichedPR{
		PullRequest:      bundle.PR,
		TotalAdditions:   metrics.TotalAdditions,
		TotalDeletions:   metrics.TotalDeletions,
		ProdAdditions:    metrics.ProdAdditions,
		ProdDeletions:    metrics.ProdDeletions,
		TestAdditions:    metrics.TestAdditions,
		TestDeletions:    metrics.TestDeletions,
		FilesChanged:     metrics.FilesChanged,
		ProdFilesChanged: metrics.ProdFilesChanged,
		TestFilesChanged: metrics.TestFilesChanged,
		IterationCount:   iterations,
		Reviews:          reviews,
		FirstResponseAt:  firstResponseAt,
		CommitCount:      len(bundle.Commits),
		ChurnPercentage:  churn.ChurnPercentage,
		FileChurnCount:   churn.FileChurnCount,
	}
}
