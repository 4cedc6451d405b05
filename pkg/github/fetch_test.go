package github

import (
	"testing"
	"time"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

func TestMergedQuery(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	got := mergedQuery("acme", "api", start, end)
	want := "repo:acme/api is:pr is:merged merged:2024-03-01..2024-03-31"
	if got != want {
		t.Errorf("mergedQuery = %q, want %q", got, want)
	}
}

func TestMergedQueryFebruary(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got := mergedQuery("acme", "api", start, end)
	want := "repo:acme/api is:pr is:merged merged:2024-02-01..2024-02-29"
	if got != want {
		t.Errorf("mergedQuery = %q, want %q", got, want)
	}
}

func TestAttachInlineComments(t *testing.T) {
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	reviews := []review.Review{
		{Reviewer: "bob", State: review.StateApproved},
		{Reviewer: "bob", State: review.StateCommented},
		{Reviewer: "carol", State: review.StateApproved},
	}
	inline := []inlineComment{
		{reviewer: "bob", createdAt: at},
		{reviewer: "bob", createdAt: at.Add(time.Minute)},
	}

	out := attachInlineComments(reviews, inline)

	// Both comments land on bob's first review.
	if len(out[0].InlineComments) != 2 {
		t.Errorf("Expected 2 inline comments on bob's first review, got %d", len(out[0].InlineComments))
	}
	if len(out[1].InlineComments) != 0 || len(out[2].InlineComments) != 0 {
		t.Error("Other reviews must stay untouched")
	}
}

func TestAttachInlineCommentsSynthesizesReview(t *testing.T) {
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	inline := []inlineComment{
		{reviewer: "dave", createdAt: at},
	}

	out := attachInlineComments(nil, inline)

	if len(out) != 1 {
		t.Fatalf("Expected a synthesized review, got %d reviews", len(out))
	}
	if out[0].Reviewer != "dave" || out[0].State != review.StateCommented {
		t.Errorf("Unexpected synthesized review: %+v", out[0])
	}
	if len(out[0].InlineComments) != 1 {
		t.Errorf("Expected the comment attached, got %d", len(out[0].InlineComments))
	}
	// No submission timestamp: comment-only participation must not
	// count as a review iteration downstream.
	if !out[0].SubmittedAt.IsZero() {
		t.Errorf("Expected zero SubmittedAt on synthesized review, got %v", out[0].SubmittedAt)
	}
}

func TestIsRetryable(t *testing.T) {
	// Untyped transport errors default to retryable.
	if !isRetryable(errTransport) {
		t.Error("Transport errors should be retryable")
	}
}

var errTransport = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "dial tcp: i/o timeout" }
