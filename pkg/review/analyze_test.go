package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type stubFetcher struct {
	failNumbers map[int]bool
}

func (f *stubFetcher) FetchPRBundle(_ context.Context, repo string, number int) (PRBundle, error) {
	if f.failNumbers[number] {
		return PRBundle{}, errors.New("simulated fetch failure")
	}
	created := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return PRBundle{
		PR: PullRequest{Repo: repo, Number: number, Author: "alice", CreatedAt: created},
		Files: []FileChange{
			{Filename: fmt.Sprintf("file%d.go", number), Additions: number * 10},
		},
	}, nil
}

func TestAnalyzePRsValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := AnalyzePRs(ctx, &AnalysisRequest{Fetcher: &stubFetcher{}}); err == nil {
		t.Error("Expected error for empty PR list")
	}
	if _, err := AnalyzePRs(ctx, &AnalysisRequest{PRs: []PullRequest{{Repo: "api", Number: 1}}}); err == nil {
		t.Error("Expected error for nil fetcher")
	}
}

func TestAnalyzePRsPreservesOrder(t *testing.T) {
	prs := []PullRequest{
		{Repo: "api", Number: 3},
		{Repo: "api", Number: 1},
		{Repo: "web", Number: 2},
	}

	for _, concurrency := range []int{0, 4} {
		result, err := AnalyzePRs(context.Background(), &AnalysisRequest{
			Fetcher:     &stubFetcher{},
			Config:      DefaultConfig(),
			PRs:         prs,
			Concurrency: concurrency,
		})
		if err != nil {
			t.Fatalf("concurrency=%d: %v", concurrency, err)
		}
		if len(result.Details) != 3 {
			t.Fatalf("concurrency=%d: expected 3 details, got %d", concurrency, len(result.Details))
		}
		for i, pr := range prs {
			if result.Details[i].Number != pr.Number || result.Details[i].Repo != pr.Repo {
				t.Errorf("concurrency=%d: detail %d is %s#%d, want %s#%d",
					concurrency, i, result.Details[i].Repo, result.Details[i].Number, pr.Repo, pr.Number)
			}
		}
	}
}

func TestAnalyzePRsPartialFailure(t *testing.T) {
	fetcher := &stubFetcher{failNumbers: map[int]bool{2: true}}
	prs := []PullRequest{
		{Repo: "api", Number: 1},
		{Repo: "api", Number: 2},
	}

	result, err := AnalyzePRs(context.Background(), &AnalysisRequest{
		Fetcher: fetcher,
		Config:  DefaultConfig(),
		PRs:     prs,
	})
	if err != nil {
		t.Fatalf("Partial failure must not fail the batch: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", result.Failed)
	}
	if result.Details[1].Valid() {
		t.Error("Failed PR must carry an error record")
	}
	if result.Details[1].Error == "" {
		t.Error("Failed PR must carry the fetch error text")
	}
	if !result.Details[0].Valid() {
		t.Error("Successful PR must remain valid")
	}
}

func TestAnalyzePRsAllFailed(t *testing.T) {
	fetcher := &stubFetcher{failNumbers: map[int]bool{1: true, 2: true}}
	prs := []PullRequest{
		{Repo: "api", Number: 1},
		{Repo: "api", Number: 2},
	}

	if _, err := AnalyzePRs(context.Background(), &AnalysisRequest{Fetcher: fetcher, PRs: prs}); err == nil {
		t.Error("Expected error when every fetch fails")
	}
}
