package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v56/github"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

const perPage = 100

// ListMergedPRs returns every PR in org/repo merged inside [start, end),
// ordered as the search API returns them. The returned records carry
// identity and creation time; MergedAt and the rest of the detail comes
// from FetchPRBundle.
func (c *Client) ListMergedPRs(ctx context.Context, org, repo string, start, end time.Time) ([]review.PullRequest, error) {
	query := mergedQuery(org, repo, start, end)

	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "asc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var prs []review.PullRequest
	for {
		var result *github.IssuesSearchResult
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			result, resp, err = c.gh.Search.Issues(ctx, query, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("search merged PRs in %s/%s: %w", org, repo, err)
		}

		for _, issue := range result.Issues {
			if !issue.IsPullRequest() {
				continue
			}
			prs = append(prs, review.PullRequest{
				Repo:      repo,
				Number:    issue.GetNumber(),
				Title:     issue.GetTitle(),
				Author:    issue.GetUser().GetLogin(),
				CreatedAt: issue.GetCreatedAt().Time,
				URL:       issue.GetHTMLURL(),
			})
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return prs, nil
}

// mergedQuery builds the search expression for merged PRs inside
// [start, end). The search API's merged qualifier is inclusive on both
// ends, so the end date is the last day of the window.
func mergedQuery(org, repo string, start, end time.Time) string {
	last := end.AddDate(0, 0, -1)
	return fmt.Sprintf("repo:%s/%s is:pr is:merged merged:%s..%s",
		org, repo, start.Format("2006-01-02"), last.Format("2006-01-02"))
}

// FetchPRBundle assembles everything the metric engine needs for one PR:
// metadata, the file diff, per-commit diffs, reviews with their inline
// comments, and the conversation thread.
func (c *Client) FetchPRBundle(ctx context.Context, org, repo string, number int) (review.PRBundle, error) {
	var bundle review.PRBundle

	pr, err := c.pullRequest(ctx, org, repo, number)
	if err != nil {
		return bundle, fmt.Errorf("get PR %s/%s#%d: %w", org, repo, number, err)
	}
	bundle.PR = pr

	if bundle.Files, err = c.prFiles(ctx, org, repo, number); err != nil {
		return bundle, fmt.Errorf("list files for %s/%s#%d: %w", org, repo, number, err)
	}
	if bundle.Commits, err = c.prCommits(ctx, org, repo, number); err != nil {
		return bundle, fmt.Errorf("list commits for %s/%s#%d: %w", org, repo, number, err)
	}

	reviews, err := c.prReviews(ctx, org, repo, number)
	if err != nil {
		return bundle, fmt.Errorf("list reviews for %s/%s#%d: %w", org, repo, number, err)
	}
	inline, err := c.prInlineComments(ctx, org, repo, number)
	if err != nil {
		return bundle, fmt.Errorf("list inline comments for %s/%s#%d: %w", org, repo, number, err)
	}
	bundle.Reviews = attachInlineComments(reviews, inline)

	if bundle.ConversationComments, err = c.prConversation(ctx, org, repo, number); err != nil {
		return bundle, fmt.Errorf("list conversation for %s/%s#%d: %w", org, repo, number, err)
	}

	return bundle, nil
}

func (c *Client) pullRequest(ctx context.Context, org, repo string, number int) (review.PullRequest, error) {
	var pr *github.PullRequest
	err := c.call(ctx, func() (*github.Response, error) {
		var resp *github.Response
		var err error
		pr, resp, err = c.gh.PullRequests.Get(ctx, org, repo, number)
		return resp, err
	})
	if err != nil {
		return review.PullRequest{}, err
	}

	out := review.PullRequest{
		Repo:      repo,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Author:    pr.GetUser().GetLogin(),
		CreatedAt: pr.GetCreatedAt().Time,
		URL:       pr.GetHTMLURL(),
	}
	if pr.MergedAt != nil {
		out.MergedAt = pr.MergedAt.Time
	}
	return out, nil
}

func (c *Client) prFiles(ctx context.Context, org, repo string, number int) ([]review.FileChange, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var files []review.FileChange
	for {
		var page []*github.CommitFile
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			page, resp, err = c.gh.PullRequests.ListFiles(ctx, org, repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, f := range page {
			files = append(files, review.FileChange{
				Filename:  f.GetFilename(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
				Status:    f.GetStatus(),
			})
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return files, nil
}

// prCommits lists a PR's commits and fetches each commit's file diff.
// The per-commit diffs are what churn detection runs on; the list
// endpoint alone does not include them.
func (c *Client) prCommits(ctx context.Context, org, repo string, number int) ([]review.Commit, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var commits []review.Commit
	for {
		var page []*github.RepositoryCommit
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			page, resp, err = c.gh.PullRequests.ListCommits(ctx, org, repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, rc := range page {
			commit := review.Commit{
				SHA:  rc.GetSHA(),
				Date: rc.GetCommit().GetAuthor().GetDate().Time,
			}

			var detail *github.RepositoryCommit
			err := c.call(ctx, func() (*github.Response, error) {
				var resp *github.Response
				var err error
				detail, resp, err = c.gh.Repositories.GetCommit(ctx, org, repo, rc.GetSHA(), nil)
				return resp, err
			})
			if err != nil {
				return nil, fmt.Errorf("get commit %s: %w", rc.GetSHA(), err)
			}
			for _, f := range detail.Files {
				commit.Files = append(commit.Files, review.FileChange{
					Filename:  f.GetFilename(),
					Additions: f.GetAdditions(),
					Deletions: f.GetDeletions(),
					Status:    f.GetStatus(),
				})
			}

			commits = append(commits, commit)
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return commits, nil
}

func (c *Client) prReviews(ctx context.Context, org, repo string, number int) ([]review.Review, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var reviews []review.Review
	for {
		var page []*github.PullRequestReview
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			page, resp, err = c.gh.PullRequests.ListReviews(ctx, org, repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, r := range page {
			// PENDING reviews have no submission time and are not
			// visible to anyone but their author; skip them.
			if r.GetState() == "PENDING" {
				continue
			}
			reviews = append(reviews, review.Review{
				Reviewer:    r.GetUser().GetLogin(),
				State:       r.GetState(),
				SubmittedAt: r.GetSubmittedAt().Time,
				Body:        r.GetBody(),
			})
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return reviews, nil
}

// inlineComment pairs a review comment with the review it belongs to.
type inlineComment struct {
	reviewer  string
	createdAt time.Time
}

func (c *Client) prInlineComments(ctx context.Context, org, repo string, number int) ([]inlineComment, error) {
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var comments []inlineComment
	for {
		var page []*github.PullRequestComment
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			page, resp, err = c.gh.PullRequests.ListComments(ctx, org, repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, cm := range page {
			comments = append(comments, inlineComment{
				reviewer:  cm.GetUser().GetLogin(),
				createdAt: cm.GetCreatedAt().Time,
			})
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return comments, nil
}

func (c *Client) prConversation(ctx context.Context, org, repo string, number int) ([]review.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var comments []review.Comment
	for {
		var page []*github.IssueComment
		var next int
		err := c.call(ctx, func() (*github.Response, error) {
			var resp *github.Response
			var err error
			page, resp, err = c.gh.Issues.ListComments(ctx, org, repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, cm := range page {
			// Bot chatter is not review activity.
			if strings.HasSuffix(cm.GetUser().GetLogin(), "[bot]") {
				continue
			}
			comments = append(comments, review.Comment{
				Author:    cm.GetUser().GetLogin(),
				CreatedAt: cm.GetCreatedAt().Time,
			})
		}

		if next == 0 {
			break
		}
		opts.Page = next
	}

	return comments, nil
}

// attachInlineComments distributes inline comments onto reviews by
// reviewer login. GitHub ties inline comments to pull request review IDs,
// but for activity timing the reviewer identity is what matters; each
// comment is attached to the reviewer's first review.
func attachInlineComments(reviews []review.Review, inline []inlineComment) []review.Review {
	firstByReviewer := make(map[string]int, len(reviews))
	for i, r := range reviews {
		if _, ok := firstByReviewer[r.Reviewer]; !ok {
			firstByReviewer[r.Reviewer] = i
		}
	}

	for _, cm := range inline {
		idx, ok := firstByReviewer[cm.reviewer]
		if !ok {
			// Inline comment without a formal review: synthesize a
			// comment-only review so the activity still counts.
			reviews = append(reviews, review.Review{
				Reviewer: cm.reviewer,
				State:    review.StateCommented,
			})
			idx = len(reviews) - 1
			firstByReviewer[cm.reviewer] = idx
		}
		reviews[idx].InlineComments = append(reviews[idx].InlineComments, review.Comment{
			Author:    cm.reviewer,
			CreatedAt: cm.createdAt,
		})
	}

	return reviews
}
