package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	errNoPRs     = errors.New("no pull requests provided")
	errNoFetcher = errors.New("fetcher is required")
)

// PRFetcher fetches the full bundle of data for one PR.
// This allows different implementations (with/without caching, different data sources).
type PRFetcher interface {
	// FetchPRBundle fetches the PR plus its files, commits, reviews,
	// and conversation comments.
	FetchPRBundle(ctx context.Context, repo string, number int) (PRBundle, error)
}

// AnalysisRequest contains parameters for enriching a set of PRs.
type AnalysisRequest struct {
	Fetcher     PRFetcher     // PR data fetcher
	Config      Config        // Metric configuration
	PRs         []PullRequest // PRs to enrich
	Logger      *slog.Logger  // Optional logger for progress
	Concurrency int           // Number of concurrent fetches (0 = sequential)
}

// AnalysisResult contains the enriched PRs in the same order they were
// requested. Failed counts the PRs whose fetch errored; those still
// appear in Details as degenerate records carrying the error string.
type AnalysisResult struct {
	Details []EnrichedPR
	Failed  int
}

// AnalyzePRs fetches and enriches a set of PRs.
// This is the shared code path used by both CLI and server.
func AnalyzePRs(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error) {
	if len(req.PRs) == 0 {
		return nil, errNoPRs
	}

	if req.Fetcher == nil {
		return nil, errNoFetcher
	}

	// Default to sequential processing if concurrency not specified
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	details := make([]EnrichedPR, len(req.PRs))
	var failed int

	// Sequential processing
	if concurrency == 1 {
		for i, pr := range req.PRs {
			if req.Logger != nil {
				req.Logger.InfoContext(ctx, "Processing PR",
					"repo", pr.Repo,
					"number", pr.Number,
					"progress", fmt.Sprintf("%d/%d", i+1, len(req.PRs)))
			}

			bundle, err := req.Fetcher.FetchPRBundle(ctx, pr.Repo, pr.Number)
			if err != nil {
				if req.Logger != nil {
					req.Logger.WarnContext(ctx, "Failed to fetch PR data",
						"repo", pr.Repo, "number", pr.Number, "error", err)
				}
				details[i] = EnrichedPR{PullRequest: pr, Error: err.Error()}
				failed++
				continue
			}

			details[i] = Enrich(bundle, req.Config)
		}
	} else {
		// Parallel processing with semaphore
		var mu sync.Mutex
		var wg sync.WaitGroup
		semaphore := make(chan struct{}, concurrency)

		for i, pr := range req.PRs {
			wg.Add(1)
			go func(index int, pr PullRequest) {
				defer wg.Done()

				// Acquire semaphore slot
				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				if req.Logger != nil {
					req.Logger.InfoContext(ctx, "Processing PR",
						"repo", pr.Repo,
						"number", pr.Number,
						"progress", fmt.Sprintf("%d/%d", index+1, len(req.PRs)))
				}

				bundle, err := req.Fetcher.FetchPRBundle(ctx, pr.Repo, pr.Number)
				if err != nil {
					if req.Logger != nil {
						req.Logger.WarnContext(ctx, "Failed to fetch PR data",
							"repo", pr.Repo, "number", pr.Number, "error", err)
					}
					details[index] = EnrichedPR{PullRequest: pr, Error: err.Error()}
					mu.Lock()
					failed++
					mu.Unlock()
					return
				}

				details[index] = Enrich(bundle, req.Config)
			}(i, pr)
		}

		wg.Wait()
	}

	if failed == len(req.PRs) {
		return nil, fmt.Errorf("no pull requests could be processed (%d failed)", failed)
	}

	return &AnalysisResult{
		Details: details,
		Failed:  failed,
	}, nil
}
