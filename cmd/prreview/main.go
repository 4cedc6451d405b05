// Package main implements a CLI tool that collects monthly PR review
// metrics for a GitHub organization.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prreview/pkg/github"
	"github.com/codeGROOVE-dev/prreview/pkg/report"
	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

func main() {
	org := flag.String("org", "", "GitHub organization (required)")
	repos := flag.String("repos", "", "Comma-separated repository names (required)")
	month := flag.String("month", "", "Month to collect as YYYY-MM (default: previous month)")
	out := flag.String("out", ".", "Directory for the report files")
	concurrency := flag.Int("concurrency", 4, "Concurrent PR fetches")
	verbose := flag.Bool("verbose", false, "Log progress for every PR")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s --org ORG --repos REPO[,REPO...] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Collect PR review metrics for one calendar month.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --org acme --repos api,web\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --org acme --repos api --month 2024-03 --out ./reports\n", os.Args[0])
	}

	flag.Parse()

	if *org == "" || *repos == "" {
		flag.Usage()
		os.Exit(1)
	}

	repoList := splitRepos(*repos)
	if len(repoList) == 0 {
		log.Fatalf("No repositories given in --repos")
	}

	if *month == "" {
		*month = report.PreviousMonth(time.Now().UTC())
	}
	start, end, err := report.MonthWindow(*month)
	if err != nil {
		log.Fatalf("Invalid --month: %v", err)
	}

	ctx := context.Background()
	token, err := githubToken(ctx)
	if err != nil {
		log.Fatalf("Failed to get GitHub token: %v\nSet GITHUB_TOKEN or ensure 'gh' is installed and authenticated (run 'gh auth login')", err)
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	client := github.NewClient(ctx, token)

	var prs []review.PullRequest
	for _, repo := range repoList {
		found, err := client.ListMergedPRs(ctx, *org, repo, start, end)
		if err != nil {
			log.Fatalf("Failed to list merged PRs for %s/%s: %v", *org, repo, err)
		}
		logger.Info("Listed merged PRs", "repo", repo, "count", len(found))
		prs = append(prs, found...)
	}

	cfg := review.DefaultConfig()

	var details []review.EnrichedPR
	if len(prs) == 0 {
		fmt.Fprintf(os.Stderr, "No merged PRs found for %s in %s\n", *org, *month)
	} else {
		result, err := review.AnalyzePRs(ctx, &review.AnalysisRequest{
			Fetcher:     &github.Fetcher{Client: client, Org: *org},
			Config:      cfg,
			PRs:         prs,
			Logger:      logger,
			Concurrency: *concurrency,
		})
		if err != nil {
			log.Fatalf("Failed to analyze PRs: %v", err)
		}
		if result.Failed > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d of %d PRs could not be fetched\n", result.Failed, len(prs))
		}
		details = result.Details
	}

	r := report.Build(*org, *month, repoList, details, cfg)
	if err := r.WriteFiles(*out); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	printSummary(r)
}

// splitRepos parses the --repos value, tolerating whitespace and empty
// segments.
func splitRepos(s string) []string {
	var repos []string
	for _, part := range strings.Split(s, ",") {
		if repo := strings.TrimSpace(part); repo != "" {
			repos = append(repos, repo)
		}
	}
	return repos
}

// githubToken resolves a token from the GITHUB_TOKEN environment
// variable, falling back to the gh CLI.
func githubToken(ctx context.Context) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "auth", "token")
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("timeout getting auth token")
		}
		return "", fmt.Errorf("failed to get auth token (is 'gh' installed and authenticated?): %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// printSummary writes a short human-readable recap to stdout.
func printSummary(r *report.Report) {
	fmt.Printf("PR REVIEW REPORT %s\n", r.Month)
	fmt.Printf("=========================\n\n")
	fmt.Printf("Org:   %s\n", r.Org)
	fmt.Printf("Repos: %s\n", strings.Join(r.Repos, ", "))
	fmt.Printf("PRs:   %d\n\n", len(r.Details))

	if len(r.Summary) > 0 {
		fmt.Printf("REVIEWERS\n")
		for _, s := range r.Summary {
			fmt.Printf("  %-24s %3d reviews  %3d PRs  median response %6.2fh\n",
				s.Reviewer, s.TotalReviews, s.PRsReviewed, s.MedianResponseHours)
		}
		fmt.Printf("\n")
	}

	if len(r.AuthorSummary) > 0 {
		fmt.Printf("AUTHORS\n")
		for _, a := range r.AuthorSummary {
			fmt.Printf("  %-24s %3d PRs  avg %4d lines  quality %3d\n",
				a.Author, a.PRsAuthored, a.AvgPRSize, a.QualityScore)
		}
		fmt.Printf("\n")
	}

	team := r.TeamSummary
	fmt.Printf("TEAM\n")
	fmt.Printf("  Avg PR size:            %d lines\n", team.Authored.AvgPRSize)
	fmt.Printf("  Avg close time:         %.2f working hours\n", team.Authored.AvgCloseHours)
	fmt.Printf("  Median first response:  %.2f working hours\n", team.Reviewed.MedianResponseHours)
	fmt.Printf("  No-comment approvals:   %.1f%%\n", team.Reviewed.OverallNoCommentPct)
}
