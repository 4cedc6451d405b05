package review

import (
	"testing"
	"time"
)

func ts(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 3, 5, hour, minute, 0, 0, time.UTC)
}

func TestReduceActivityFirstActivity(t *testing.T) {
	reviews := []Review{
		{
			Reviewer:    "bob",
			State:       StateApproved,
			SubmittedAt: ts(t, 14, 0),
			InlineComments: []Comment{
				{Author: "bob", CreatedAt: ts(t, 12, 30)},
			},
		},
	}
	conversation := []Comment{
		{Author: "bob", CreatedAt: ts(t, 13, 0)},
	}

	enriched, first := ReduceActivity("alice", reviews, conversation)

	if len(enriched) != 1 {
		t.Fatalf("Expected 1 enriched review, got %d", len(enriched))
	}
	// The inline comment at 12:30 precedes the formal submission.
	if !enriched[0].FirstActivityAt.Equal(ts(t, 12, 30)) {
		t.Errorf("Expected first activity 12:30, got %v", enriched[0].FirstActivityAt)
	}
	if first == nil || !first.Equal(ts(t, 12, 30)) {
		t.Errorf("Expected first response 12:30, got %v", first)
	}
}

func TestReduceActivityAuthorExcluded(t *testing.T) {
	reviews := []Review{
		{Reviewer: "alice", State: StateCommented, SubmittedAt: ts(t, 10, 0)},
		{Reviewer: "bob", State: StateApproved, SubmittedAt: ts(t, 15, 0)},
	}
	conversation := []Comment{
		{Author: "alice", CreatedAt: ts(t, 9, 0)},
	}

	_, first := ReduceActivity("alice", reviews, conversation)

	// Alice's own review and comment never count as a response.
	if first == nil || !first.Equal(ts(t, 15, 0)) {
		t.Errorf("Expected first response from bob at 15:00, got %v", first)
	}
}

func TestReduceActivityNoResponse(t *testing.T) {
	reviews := []Review{
		{Reviewer: "alice", State: StateCommented, SubmittedAt: ts(t, 10, 0)},
	}

	_, first := ReduceActivity("alice", reviews, nil)
	if first != nil {
		t.Errorf("Expected nil first response with only author activity, got %v", first)
	}

	_, first = ReduceActivity("alice", nil, nil)
	if first != nil {
		t.Errorf("Expected nil first response with no activity, got %v", first)
	}
}

func TestReduceActivityConversationOnlyResponder(t *testing.T) {
	conversation := []Comment{
		{Author: "carol", CreatedAt: ts(t, 11, 0)},
	}

	_, first := ReduceActivity("alice", nil, conversation)
	if first == nil || !first.Equal(ts(t, 11, 0)) {
		t.Errorf("Expected conversation-only responder at 11:00, got %v", first)
	}
}

func TestReduceActivityHasComments(t *testing.T) {
	reviews := []Review{
		{Reviewer: "bob", State: StateApproved, SubmittedAt: ts(t, 14, 0)},
		{Reviewer: "carol", State: StateApproved, SubmittedAt: ts(t, 15, 0), Body: "  lgtm  "},
		{Reviewer: "dave", State: StateApproved, SubmittedAt: ts(t, 16, 0), Body: "   "},
	}

	enriched, _ := ReduceActivity("alice", reviews, nil)

	if enriched[0].HasComments {
		t.Error("Bare approval should have HasComments false")
	}
	if !enriched[1].HasComments {
		t.Error("Approval with a body should have HasComments true")
	}
	if enriched[2].HasComments {
		t.Error("Whitespace-only body should not count as a comment")
	}
}

func TestEnrichErroredBundle(t *testing.T) {
	bundle := PRBundle{
		PR:    PullRequest{Repo: "api", Number: 7, Author: "alice"},
		Error: "fetch failed",
	}

	pr := Enrich(bundle, DefaultConfig())
	if pr.Valid() {
		t.Error("Errored bundle must produce an invalid record")
	}
	if pr.Repo != "api" || pr.Number != 7 {
		t.Errorf("Identity must survive the error path, got %s#%d", pr.Repo, pr.Number)
	}
	if pr.Size() != 0 || pr.IterationCount != 0 {
		t.Error("Errored record must carry degenerate metrics")
	}
}

func TestEnrichFullBundle(t *testing.T) {
	bundle := PRBundle{
		PR: PullRequest{Repo: "api", Number: 8, Author: "alice", CreatedAt: ts(t, 9, 0)},
		Files: []FileChange{
			{Filename: "handler.go", Additions: 40, Deletions: 10},
			{Filename: "handler_test.go", Additions: 60, Deletions: 0},
		},
		Commits: []Commit{
			{SHA: "1", Files: []FileChange{{Filename: "handler.go", Additions: 40}}},
			{SHA: "2", Files: []FileChange{{Filename: "handler.go", Additions: 10}}},
		},
		Reviews: []Review{
			{Reviewer: "bob", State: StateChangesRequested, SubmittedAt: ts(t, 11, 0)},
			{Reviewer: "bob", State: StateApproved, SubmittedAt: ts(t, 16, 0)},
		},
	}

	pr := Enrich(bundle, DefaultConfig())

	if pr.Size() != 110 || pr.ProdSize() != 50 || pr.TestSize() != 60 {
		t.Errorf("Unexpected sizes: total=%d prod=%d test=%d", pr.Size(), pr.ProdSize(), pr.TestSize())
	}
	if pr.IterationCount != 2 {
		t.Errorf("Expected 2 iterations, got %d", pr.IterationCount)
	}
	if pr.CommitCount != 2 {
		t.Errorf("Expected 2 commits, got %d", pr.CommitCount)
	}
	if pr.ChurnPercentage != 20 {
		t.Errorf("Expected 20%% churn, got %v", pr.ChurnPercentage)
	}
	if pr.FirstResponseAt == nil || !pr.FirstResponseAt.Equal(ts(t, 11, 0)) {
		t.Errorf("Expected first response at 11:00, got %v", pr.FirstResponseAt)
	}
}

func TestEnrichIterationCountSkipsCommentOnlyReviews(t *testing.T) {
	bundle := PRBundle{
		PR: PullRequest{Repo: "api", Number: 5, Author: "alice", CreatedAt: ts(t, 10, 0)},
		Reviews: []Review{
			{Reviewer: "bob", State: StateApproved, SubmittedAt: ts(t, 12, 0)},
			// Inline-comment-only participation carries no submission
			// timestamp and is not a review round.
			{Reviewer: "carol", State: StateCommented, InlineComments: []Comment{
				{Author: "carol", CreatedAt: ts(t, 11, 0)},
			}},
		},
	}

	pr := Enrich(bundle, DefaultConfig())
	if pr.IterationCount != 1 {
		t.Errorf("Expected 1 iteration, got %d", pr.IterationCount)
	}
	if len(pr.Reviews) != 2 {
		t.Fatalf("Expected both participants kept, got %d reviews", len(pr.Reviews))
	}
	if got := pr.Reviews[1].FirstActivityAt; !got.Equal(ts(t, 11, 0)) {
		t.Errorf("Expected carol's activity at 11:00, got %v", got)
	}
}
