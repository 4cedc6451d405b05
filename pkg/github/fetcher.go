package github

import (
	"context"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

// Fetcher binds a Client to one organization and implements the
// review.PRFetcher interface.
type Fetcher struct {
	Client *Client
	Org    string
}

// FetchPRBundle implements the PRFetcher interface from pkg/review.
func (f *Fetcher) FetchPRBundle(ctx context.Context, repo string, number int) (review.PRBundle, error) {
	return f.Client.FetchPRBundle(ctx, f.Org, repo, number)
}
