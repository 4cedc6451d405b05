package review

import (
	"testing"
	"time"
)

// batchPR builds a merged PR created Tuesday 2024-03-05 10:00 UTC.
func batchPR(t *testing.T, repo string, number int, author string, reviews ...EnrichedReview) EnrichedPR {
	t.Helper()
	created := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return EnrichedPR{
		PullRequest: PullRequest{
			Repo:      repo,
			Number:    number,
			Author:    author,
			CreatedAt: created,
			MergedAt:  created.Add(4 * time.Hour),
		},
		TotalAdditions: 80,
		TotalDeletions: 20,
		ProdAdditions:  60,
		ProdDeletions:  10,
		TestAdditions:  20,
		TestDeletions:  10,
		IterationCount: len(reviews),
		Reviews:        reviews,
		CommitCount:    2,
	}
}

func approvalAt(t *testing.T, reviewer string, hour int, hasComments bool) EnrichedReview {
	t.Helper()
	at := time.Date(2024, 3, 5, hour, 0, 0, 0, time.UTC)
	return EnrichedReview{
		Review:          Review{Reviewer: reviewer, State: StateApproved, SubmittedAt: at},
		FirstActivityAt: at,
		HasComments:     hasComments,
	}
}

func TestAggregateReviewersCounters(t *testing.T) {
	cfg := DefaultConfig()
	prs := []EnrichedPR{
		batchPR(t, "api", 1, "alice",
			approvalAt(t, "bob", 12, false),
		),
		batchPR(t, "web", 2, "alice",
			approvalAt(t, "bob", 14, true),
			EnrichedReview{
				Review:          Review{Reviewer: "bob", State: StateChangesRequested, SubmittedAt: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)},
				FirstActivityAt: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC),
				HasComments:     true,
			},
		),
	}

	summaries := AggregateReviewers(prs, cfg)
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 reviewer, got %d", len(summaries))
	}

	bob := summaries[0]
	if bob.TotalReviews != 3 {
		t.Errorf("Expected 3 total reviews, got %d", bob.TotalReviews)
	}
	if bob.PRsReviewed != 2 {
		t.Errorf("Expected 2 PRs reviewed, got %d", bob.PRsReviewed)
	}
	if bob.Approvals != 2 || bob.ChangesRequested != 1 {
		t.Errorf("Expected 2 approvals and 1 changes-requested, got %d/%d", bob.Approvals, bob.ChangesRequested)
	}
	if bob.NoCommentApprovals != 1 {
		t.Errorf("Expected 1 no-comment approval, got %d", bob.NoCommentApprovals)
	}
	if bob.MultiRoundPRs != 1 {
		t.Errorf("Expected 1 multi-round PR, got %d", bob.MultiRoundPRs)
	}
	if bob.CountsByRepo["api"] != 1 || bob.CountsByRepo["web"] != 1 {
		t.Errorf("Unexpected repo counts: %v", bob.CountsByRepo)
	}
	if bob.AvgPRSize != 100 || bob.AvgProdSize != 70 || bob.AvgTestSize != 30 {
		t.Errorf("Unexpected size averages: %d/%d/%d", bob.AvgPRSize, bob.AvgProdSize, bob.AvgTestSize)
	}
}

func TestAggregateReviewersResponseHours(t *testing.T) {
	cfg := DefaultConfig()
	prs := []EnrichedPR{
		// Created 10:00, first activity 12:00: two working hours.
		batchPR(t, "api", 1, "alice", approvalAt(t, "bob", 12, false)),
	}

	summaries := AggregateReviewers(prs, cfg)
	if got := summaries[0].MedianResponseHours; got != 2 {
		t.Errorf("Expected 2h median response, got %v", got)
	}
	if got := summaries[0].FastestResponseHours; got != 2 {
		t.Errorf("Expected 2h fastest response, got %v", got)
	}
}

func TestAggregateReviewersSkipsErrorRecords(t *testing.T) {
	cfg := DefaultConfig()
	errored := batchPR(t, "api", 3, "alice", approvalAt(t, "bob", 12, false))
	errored.Error = "fetch failed"

	summaries := AggregateReviewers([]EnrichedPR{errored}, cfg)
	if len(summaries) != 0 {
		t.Errorf("Errored records must not contribute, got %d summaries", len(summaries))
	}
}

func TestAggregateReviewersDropsPreCreationActivity(t *testing.T) {
	cfg := DefaultConfig()
	pr := batchPR(t, "api", 4, "alice", approvalAt(t, "bob", 9, false))

	summaries := AggregateReviewers([]EnrichedPR{pr}, cfg)

	// The 09:00 activity precedes the 10:00 creation; the response
	// sample is dropped but the review still counts.
	if summaries[0].TotalReviews != 1 {
		t.Errorf("Expected the review counted, got %d", summaries[0].TotalReviews)
	}
	if summaries[0].MedianResponseHours != 0 {
		t.Errorf("Expected no response sample, got %v", summaries[0].MedianResponseHours)
	}
}

func TestAggregateReviewersSortOrder(t *testing.T) {
	cfg := DefaultConfig()
	prs := []EnrichedPR{
		batchPR(t, "api", 1, "alice", approvalAt(t, "carol", 12, false)),
		batchPR(t, "api", 2, "alice",
			approvalAt(t, "bob", 12, false),
		),
		batchPR(t, "api", 3, "alice",
			approvalAt(t, "bob", 12, false),
		),
	}

	summaries := AggregateReviewers(prs, cfg)
	if summaries[0].Reviewer != "bob" || summaries[1].Reviewer != "carol" {
		t.Errorf("Expected bob before carol, got %s then %s", summaries[0].Reviewer, summaries[1].Reviewer)
	}
}

func TestAggregateAuthors(t *testing.T) {
	cfg := DefaultConfig()
	resp := time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)

	pr1 := batchPR(t, "api", 1, "alice", approvalAt(t, "bob", 13, true))
	pr1.FirstResponseAt = &resp
	pr2 := batchPR(t, "web", 2, "alice")
	pr3 := batchPR(t, "api", 3, "carol")

	summaries := AggregateAuthors([]EnrichedPR{pr1, pr2, pr3}, cfg)
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 authors, got %d", len(summaries))
	}

	alice := summaries[0]
	if alice.Author != "alice" || alice.PRsAuthored != 2 {
		t.Fatalf("Expected alice with 2 PRs first, got %s with %d", alice.Author, alice.PRsAuthored)
	}
	if alice.CountsByRepo["api"] != 1 || alice.CountsByRepo["web"] != 1 {
		t.Errorf("Unexpected repo counts: %v", alice.CountsByRepo)
	}
	// Created 10:00, responded 13:00: three working hours.
	if alice.MedianResponseHours != 3 {
		t.Errorf("Expected 3h median response, got %v", alice.MedianResponseHours)
	}
	// Merged four hours after creation, inside the workday.
	if alice.AvgMergeHours != 4 {
		t.Errorf("Expected 4h avg merge, got %v", alice.AvgMergeHours)
	}
	if alice.AvgCommits != 2 {
		t.Errorf("Expected 2 avg commits, got %v", alice.AvgCommits)
	}
}

func TestTeamSummarize(t *testing.T) {
	cfg := DefaultConfig()
	resp := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	pr1 := batchPR(t, "api", 1, "alice",
		approvalAt(t, "bob", 12, false),
		approvalAt(t, "carol", 13, true),
	)
	pr1.FirstResponseAt = &resp
	pr2 := batchPR(t, "api", 2, "carol")
	errored := EnrichedPR{PullRequest: PullRequest{Repo: "api", Number: 9}, Error: "boom"}

	prs := []EnrichedPR{pr1, pr2, errored}
	reviewers := AggregateReviewers(prs, cfg)
	team := TeamSummarize(prs, reviewers, cfg)

	if team.Authored.PRCount != 2 {
		t.Errorf("Expected 2 valid PRs, got %d", team.Authored.PRCount)
	}
	if team.Reviewed.TotalReviews != 2 {
		t.Errorf("Expected 2 reviews, got %d", team.Reviewed.TotalReviews)
	}
	// One of two approvals had no comments.
	if team.Reviewed.OverallNoCommentPct != 50 {
		t.Errorf("Expected 50%% no-comment approvals, got %v", team.Reviewed.OverallNoCommentPct)
	}
	if team.Reviewed.MedianResponseHours != 2 {
		t.Errorf("Expected 2h median response, got %v", team.Reviewed.MedianResponseHours)
	}
	if team.Authored.AvgPRSize != 100 {
		t.Errorf("Expected 100 avg size, got %d", team.Authored.AvgPRSize)
	}
}

func TestAggregateReviewersConversationCountedOncePerPR(t *testing.T) {
	cfg := DefaultConfig()

	// Two reviews by the same reviewer on one PR both carry the
	// PR-level conversation total; the summary must not double it.
	first := approvalAt(t, "bob", 12, true)
	first.ConversationCommentCount = 2
	second := EnrichedReview{
		Review:                   Review{Reviewer: "bob", State: StateCommented, SubmittedAt: time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)},
		FirstActivityAt:          time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC),
		HasComments:              true,
		ConversationCommentCount: 2,
	}

	summaries := AggregateReviewers([]EnrichedPR{batchPR(t, "api", 1, "alice", first, second)}, cfg)
	if got := summaries[0].ConversationComments; got != 2 {
		t.Errorf("Expected 2 conversation comments, got %d", got)
	}
}

func TestTeamReviewedAveragesUnrounded(t *testing.T) {
	cfg := DefaultConfig()

	small1 := batchPR(t, "api", 1, "alice", approvalAt(t, "bob", 12, false))
	small1.TotalAdditions, small1.TotalDeletions = 1, 0
	small2 := batchPR(t, "api", 2, "alice", approvalAt(t, "bob", 12, false))
	small2.TotalAdditions, small2.TotalDeletions = 2, 0
	large := batchPR(t, "api", 3, "alice", approvalAt(t, "carol", 12, false))
	large.TotalAdditions, large.TotalDeletions = 10, 0

	prs := []EnrichedPR{small1, small2, large}
	team := TeamSummarize(prs, AggregateReviewers(prs, cfg), cfg)

	// (1 + 2 + 10) / 3 with no intermediate rounding of bob's 1.5 mean.
	if team.Reviewed.AvgPRSize != 4.33 {
		t.Errorf("Expected 4.33 reviewed avg size, got %v", team.Reviewed.AvgPRSize)
	}
}

func TestSummarizeZeroHourMergeScoresFullClose(t *testing.T) {
	cfg := DefaultConfig()

	// Created Saturday, merged Sunday: zero working hours, but the
	// merge sample exists and earns the full close-time sub-score
	// instead of the no-data neutral 50.
	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	pr := EnrichedPR{
		PullRequest: PullRequest{
			Repo:      "api",
			Number:    1,
			Author:    "alice",
			CreatedAt: created,
			MergedAt:  created.Add(24 * time.Hour),
		},
	}

	_, authors, _ := Summarize([]EnrichedPR{pr}, cfg)
	alice := authors[0]
	if alice.MergedPRs != 1 {
		t.Fatalf("Expected 1 merged PR, got %d", alice.MergedPRs)
	}
	if alice.AvgMergeHours != 0 {
		t.Fatalf("Expected 0h avg merge, got %v", alice.AvgMergeHours)
	}
	if alice.QualityScore != 100 {
		t.Errorf("Expected full score for an instant merge of an empty-size PR, got %d", alice.QualityScore)
	}
}

func TestSummarizeFillsQualityScores(t *testing.T) {
	cfg := DefaultConfig()
	prs := []EnrichedPR{
		batchPR(t, "api", 1, "alice", approvalAt(t, "bob", 12, true)),
	}

	_, authors, _ := Summarize(prs, cfg)
	if len(authors) != 1 {
		t.Fatalf("Expected 1 author, got %d", len(authors))
	}
	score := authors[0].QualityScore
	if score < 0 || score > 100 {
		t.Errorf("Quality score out of range: %d", score)
	}
	if score == 0 {
		t.Error("A small, fast PR should not score 0")
	}
}
