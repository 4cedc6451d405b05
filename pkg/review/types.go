package review

import "time"

// PullRequest is the raw PR metadata produced by the fetch layer.
// Identity is (Repo, Number). The engine never mutates one; it only
// derives enriched records from it.
type PullRequest struct {
	Repo      string    `json:"repo"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	MergedAt  time.Time `json:"merged_at,omitzero"` // zero if not merged
	URL       string    `json:"url"`
}

// FileChange is one file's diff stats, either from a PR's full diff or
// from a single commit's diff.
type FileChange struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Status    string `json:"status"`
}

// Commit is one commit inside a PR, with its per-file changes.
type Commit struct {
	SHA   string       `json:"sha"`
	Date  time.Time    `json:"date"`
	Files []FileChange `json:"files"`
}

// Comment is a timestamped comment by a participant. Inline (code-attached)
// comments hang off a Review; conversation (thread-level) comments hang off
// the PR directly.
type Comment struct {
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Review states as reported by the hosting API.
const (
	StateApproved         = "APPROVED"
	StateChangesRequested = "CHANGES_REQUESTED"
	StateCommented        = "COMMENTED"
	StateDismissed        = "DISMISSED"
)

// Review is one review submission. A reviewer may submit several reviews
// on the same PR; iteration count is review count, not reviewer count.
type Review struct {
	Reviewer       string    `json:"reviewer"`
	State          string    `json:"state"`
	SubmittedAt    time.Time `json:"submitted_at,omitzero"`
	Body           string    `json:"body"`
	InlineComments []Comment `json:"inline_comments,omitempty"`
}

// PRBundle is everything the fetch layer hands over for one PR.
// A non-empty Error marks a PR whose detail fetch failed after retries;
// such a bundle carries no usable review data.
type PRBundle struct {
	PR                   PullRequest  `json:"pr"`
	Files                []FileChange `json:"files"`
	Commits              []Commit     `json:"commits"` // chronological
	Reviews              []Review     `json:"reviews"`
	ConversationComments []Comment    `json:"conversation_comments"`
	Error                string       `json:"error,omitempty"`
}

// EnrichedReview is a review plus its derived activity fields.
type EnrichedReview struct {
	Review
	// Earliest of submission, any inline comment, and any conversation
	// comment by this reviewer. Falls back to SubmittedAt when no
	// comments exist. A comment can precede the formal submission.
	FirstActivityAt          time.Time `json:"first_activity_at,omitzero"`
	HasComments              bool      `json:"has_comments"`
	InlineCommentCount       int       `json:"inline_comment_count"`
	ConversationCommentCount int       `json:"conversation_comment_count"`
}

// EnrichedPR is the fully derived per-PR record the aggregators consume.
// Constructed once by Enrich and never mutated. A non-empty Error marks
// the record as unusable: every aggregator skips it.
type EnrichedPR struct {
	PullRequest

	TotalAdditions   int `json:"total_additions"`
	TotalDeletions   int `json:"total_deletions"`
	ProdAdditions    int `json:"prod_additions"`
	ProdDeletions    int `json:"prod_deletions"`
	TestAdditions    int `json:"test_additions"`
	TestDeletions    int `json:"test_deletions"`
	FilesChanged     int `json:"files_changed"`
	ProdFilesChanged int `json:"prod_files_changed"`
	TestFilesChanged int `json:"test_files_changed"`

	IterationCount  int              `json:"iteration_count"`
	Reviews         []EnrichedReview `json:"reviews"`
	FirstResponseAt *time.Time       `json:"first_response_at"`
	CommitCount     int              `json:"commit_count"`
	ChurnPercentage float64          `json:"churn_percentage"`
	FileChurnCount  int              `json:"file_churn_count"`

	Error string `json:"error,omitempty"`
}

// Valid reports whether the record may contribute to aggregation.
func (p *EnrichedPR) Valid() bool {
	return p.Error == ""
}

// Size returns total changed lines (additions plus deletions).
func (p *EnrichedPR) Size() int {
	return p.TotalAdditions + p.TotalDeletions
}

// ProdSize returns changed production lines.
func (p *EnrichedPR) ProdSize() int {
	return p.ProdAdditions + p.ProdDeletions
}

// TestSize returns changed test lines.
func (p *EnrichedPR) TestSize() int {
	return p.TestAdditions + p.TestDeletions
}
