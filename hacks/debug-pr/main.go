// Package main debugs metric derivation for a specific PR.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	ghclient "github.com/codeGROOVE-dev/prreview/pkg/github"
	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

func main() {
	ctx := context.Background()
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "GITHUB_TOKEN not set")
		os.Exit(1)
	}
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <org> <repo> <number>\n", os.Args[0])
		os.Exit(1)
	}
	number, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad PR number: %v\n", err)
		os.Exit(1)
	}

	client := ghclient.NewClient(ctx, token)
	bundle, err := client.FetchPRBundle(ctx, os.Args[1], os.Args[2], number)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("PR Author: %s\n", bundle.PR.Author)
	fmt.Printf("Created: %s  Merged: %s\n", bundle.PR.CreatedAt, bundle.PR.MergedAt)
	fmt.Printf("Files: %d  Commits: %d  Reviews: %d  Conversation: %d\n",
		len(bundle.Files), len(bundle.Commits), len(bundle.Reviews), len(bundle.ConversationComments))

	cfg := review.DefaultConfig()
	pr := review.Enrich(bundle, cfg)

	fmt.Printf("\nProd: +%d/-%d across %d files\n", pr.ProdAdditions, pr.ProdDeletions, pr.ProdFilesChanged)
	fmt.Printf("Test: +%d/-%d across %d files\n", pr.TestAdditions, pr.TestDeletions, pr.TestFilesChanged)
	fmt.Printf("Iterations: %d  Churn: %.1f%% (%d files retouched)\n",
		pr.IterationCount, pr.ChurnPercentage, pr.FileChurnCount)
	if pr.FirstResponseAt != nil {
		fmt.Printf("First response: %s (%.2f working hours)\n",
			pr.FirstResponseAt, review.WorkingHours(pr.CreatedAt, *pr.FirstResponseAt, cfg))
	}

	fmt.Println("\nReviews:")
	for _, rev := range pr.Reviews {
		fmt.Printf("  %-20s %-18s first_activity=%s inline=%d conversation=%d\n",
			rev.Reviewer, rev.State, rev.FirstActivityAt.Format("2006-01-02 15:04"),
			rev.InlineCommentCount, rev.ConversationCommentCount)
	}
}
