package review

import (
	"cmp"
	"math"
	"slices"
)

// ReviewerSummary is the aggregate view of one reviewer's activity across
// a batch of enriched PRs. CountsByRepo is sparse: repos where the
// reviewer reviewed nothing are absent, not zero.
type ReviewerSummary struct {
	Reviewer             string         `json:"reviewer"`
	TotalReviews         int            `json:"total_reviews"`
	PRsReviewed          int            `json:"prs_reviewed"`
	Approvals            int            `json:"approvals"`
	ChangesRequested     int            `json:"changes_requested"`
	CommentOnlyReviews   int            `json:"comment_only_reviews"`
	NoCommentApprovals   int            `json:"no_comment_approvals"`
	InlineComments       int            `json:"inline_comments"`
	ConversationComments int            `json:"conversation_comments"`
	MedianResponseHours  float64        `json:"median_response_hours"`
	P90ResponseHours     float64        `json:"p90_response_hours"`
	FastestResponseHours float64        `json:"fastest_response_hours"`
	AvgPRSize            int            `json:"avg_pr_size"`
	AvgProdSize          int            `json:"avg_prod_size"`
	AvgTestSize          int            `json:"avg_test_size"`
	AvgIterations        float64        `json:"avg_iterations"`
	AvgCloseHours        float64        `json:"avg_close_hours"`
	MultiRoundPRs        int            `json:"multi_round_prs"`
	CountsByRepo         map[string]int `json:"counts_by_repo"`
}

// AuthorSummary is the symmetric aggregate keyed by PR author.
type AuthorSummary struct {
	Author              string         `json:"author"`
	PRsAuthored         int            `json:"prs_authored"`
	MergedPRs           int            `json:"merged_prs"`
	AvgPRSize           int            `json:"avg_pr_size"`
	AvgProdSize         int            `json:"avg_prod_size"`
	AvgTestSize         int            `json:"avg_test_size"`
	AvgProdFiles        float64        `json:"avg_prod_files"`
	AvgIterations       float64        `json:"avg_iterations"`
	AvgCommits          float64        `json:"avg_commits"`
	AvgChurnPct         float64        `json:"avg_churn_pct"`
	AvgFileChurn        float64        `json:"avg_file_churn"`
	MedianResponseHours float64        `json:"median_response_hours"`
	P90ResponseHours    float64        `json:"p90_response_hours"`
	AvgMergeHours       float64        `json:"avg_merge_hours"`
	MedianMergeHours    float64        `json:"median_merge_hours"`
	QualityScore        int            `json:"quality_score"`
	CountsByRepo        map[string]int `json:"counts_by_repo"`
}

// TeamAuthored averages over all valid PRs directly rather than over
// author averages, so prolific authors weigh in proportionally.
type TeamAuthored struct {
	PRCount         int     `json:"pr_count"`
	AvgPRSize       int     `json:"avg_pr_size"`
	AvgProdSize     int     `json:"avg_prod_size"`
	AvgTestSize     int     `json:"avg_test_size"`
	AvgCloseHours   float64 `json:"avg_close_hours"`
	AvgIterations   float64 `json:"avg_iterations"`
	AvgChurnPct     float64 `json:"avg_churn_pct"`
	AvgFileChurn    float64 `json:"avg_file_churn"`
	AvgCommitsPerPR float64 `json:"avg_commits_per_pr"`
}

// TeamReviewed aggregates the review side. The size averages weight
// each PR by its distinct reviewer count (the reviewer-mean weighting,
// computed without intermediate rounding); the response median comes
// from the flat pool of per-PR first-response samples.
type TeamReviewed struct {
	TotalReviews        int     `json:"total_reviews"`
	AvgPRSize           float64 `json:"avg_pr_size"`
	AvgProdSize         float64 `json:"avg_prod_size"`
	AvgTestSize         float64 `json:"avg_test_size"`
	MedianResponseHours float64 `json:"median_response_hours"`
	OverallNoCommentPct float64 `json:"overall_no_comment_pct"`
	AvgInlineComments   float64 `json:"avg_inline_comments"`
}

// TeamSummary is the team-wide rollup of a batch of enriched PRs.
type TeamSummary struct {
	Authored TeamAuthored `json:"authored"`
	Reviewed TeamReviewed `json:"reviewed"`
}

// reviewerAcc accumulates one reviewer's counters and samples before the
// summary is finalized.
type reviewerAcc struct {
	reviewer             string
	totalReviews         int
	approvals            int
	changesRequested     int
	commentOnly          int
	noCommentApprovals   int
	inlineComments       int
	conversationComments int
	responseHours        []float64
	prSizes              []float64
	prodSizes            []float64
	testSizes            []float64
	iterations           []float64
	closeHours           []float64
	multiRoundPRs        int
	prsReviewed          int
	countsByRepo         map[string]int
}

// AggregateReviewers folds a batch of enriched PRs into per-reviewer
// summaries. Records carrying an error are skipped entirely. PR-level
// samples (size, iterations, close time) are collected once per PR per
// reviewer even when the reviewer submitted several reviews on it.
func AggregateReviewers(prs []EnrichedPR, cfg Config) []ReviewerSummary {
	accs := make(map[string]*reviewerAcc)

	for i := range prs {
		pr := &prs[i]
		if !pr.Valid() {
			continue
		}

		// Group this PR's reviews by reviewer so PR-level samples are
		// taken exactly once per reviewer.
		byReviewer := make(map[string][]EnrichedReview)
		for _, rev := range pr.Reviews {
			if rev.Reviewer == "" {
				continue
			}
			byReviewer[rev.Reviewer] = append(byReviewer[rev.Reviewer], rev)
		}

		for reviewer, reviews := range byReviewer {
			acc := accs[reviewer]
			if acc == nil {
				acc = &reviewerAcc{reviewer: reviewer, countsByRepo: make(map[string]int)}
				accs[reviewer] = acc
			}

			for _, rev := range reviews {
				acc.totalReviews++
				switch rev.State {
				case StateApproved:
					acc.approvals++
					if !rev.HasComments {
						acc.noCommentApprovals++
					}
				case StateChangesRequested:
					acc.changesRequested++
				case StateCommented:
					acc.commentOnly++
				}
				acc.inlineComments += rev.InlineCommentCount

				// Activity before PR creation indicates a clock
				// anomaly; the sample is dropped, not an error.
				if !rev.FirstActivityAt.IsZero() && !rev.FirstActivityAt.Before(pr.CreatedAt) {
					acc.responseHours = append(acc.responseHours, WorkingHours(pr.CreatedAt, rev.FirstActivityAt, cfg))
				}
			}

			// Every review by a reviewer carries the same PR-level
			// conversation total, so it is sampled once per PR.
			acc.conversationComments += reviews[0].ConversationCommentCount

			acc.prsReviewed++
			acc.countsByRepo[pr.Repo]++
			acc.prSizes = append(acc.prSizes, float64(pr.Size()))
			acc.prodSizes = append(acc.prodSizes, float64(pr.ProdSize()))
			acc.testSizes = append(acc.testSizes, float64(pr.TestSize()))
			acc.iterations = append(acc.iterations, float64(pr.IterationCount))
			if !pr.MergedAt.IsZero() {
				acc.closeHours = append(acc.closeHours, WorkingHours(pr.CreatedAt, pr.MergedAt, cfg))
			}
			if len(reviews) > 1 {
				acc.multiRoundPRs++
			}
		}
	}

	summaries := make([]ReviewerSummary, 0, len(accs))
	for _, acc := range accs {
		summaries = append(summaries, ReviewerSummary{
			Reviewer:             acc.reviewer,
			TotalReviews:         acc.totalReviews,
			PRsReviewed:          acc.prsReviewed,
			Approvals:            acc.approvals,
			ChangesRequested:     acc.changesRequested,
			CommentOnlyReviews:   acc.commentOnly,
			NoCommentApprovals:   acc.noCommentApprovals,
			InlineComments:       acc.inlineComments,
			ConversationComments: acc.conversationComments,
			MedianResponseHours:  round2(nearestRank(acc.responseHours, 0.5)),
			P90ResponseHours:     round2(nearestRank(acc.responseHours, 0.9)),
			FastestResponseHours: round2(minSample(acc.responseHours)),
			AvgPRSize:            int(math.Round(mean(acc.prSizes))),
			AvgProdSize:          int(math.Round(mean(acc.prodSizes))),
			AvgTestSize:          int(math.Round(mean(acc.testSizes))),
			AvgIterations:        round2(mean(acc.iterations)),
			AvgCloseHours:        round2(mean(acc.closeHours)),
			MultiRoundPRs:        acc.multiRoundPRs,
			CountsByRepo:         acc.countsByRepo,
		})
	}

	slices.SortFunc(summaries, func(a, b ReviewerSummary) int {
		if c := cmp.Compare(b.TotalReviews, a.TotalReviews); c != 0 {
			return c
		}
		return cmp.Compare(a.Reviewer, b.Reviewer)
	})

	return summaries
}

// authorAcc accumulates one author's samples before finalization.
type authorAcc struct {
	author        string
	prsAuthored   int
	prSizes       []float64
	prodSizes     []float64
	testSizes     []float64
	prodFiles     []float64
	iterations    []float64
	commits       []float64
	churnPcts     []float64
	fileChurns    []float64
	responseHours []float64
	mergeHours    []float64
	countsByRepo  map[string]int
}

// AggregateAuthors folds a batch of enriched PRs into per-author
// summaries. Quality scores are filled in separately once the team
// baseline exists.
func AggregateAuthors(prs []EnrichedPR, cfg Config) []AuthorSummary {
	accs := make(map[string]*authorAcc)

	for i := range prs {
		pr := &prs[i]
		if !pr.Valid() || pr.Author == "" {
			continue
		}

		acc := accs[pr.Author]
		if acc == nil {
			acc = &authorAcc{author: pr.Author, countsByRepo: make(map[string]int)}
			accs[pr.Author] = acc
		}

		acc.prsAuthored++
		acc.countsByRepo[pr.Repo]++
		acc.prSizes = append(acc.prSizes, float64(pr.Size()))
		acc.prodSizes = append(acc.prodSizes, float64(pr.ProdSize()))
		acc.testSizes = append(acc.testSizes, float64(pr.TestSize()))
		acc.prodFiles = append(acc.prodFiles, float64(pr.ProdFilesChanged))
		acc.iterations = append(acc.iterations, float64(pr.IterationCount))
		acc.commits = append(acc.commits, float64(pr.CommitCount))
		acc.churnPcts = append(acc.churnPcts, pr.ChurnPercentage)
		acc.fileChurns = append(acc.fileChurns, float64(pr.FileChurnCount))

		if pr.FirstResponseAt != nil && !pr.FirstResponseAt.Before(pr.CreatedAt) {
			acc.responseHours = append(acc.responseHours, WorkingHours(pr.CreatedAt, *pr.FirstResponseAt, cfg))
		}
		if !pr.MergedAt.IsZero() {
			acc.mergeHours = append(acc.mergeHours, WorkingHours(pr.CreatedAt, pr.MergedAt, cfg))
		}
	}

	summaries := make([]AuthorSummary, 0, len(accs))
	for _, acc := range accs {
		summaries = append(summaries, AuthorSummary{
			Author:              acc.author,
			PRsAuthored:         acc.prsAuthored,
			MergedPRs:           len(acc.mergeHours),
			AvgPRSize:           int(math.Round(mean(acc.prSizes))),
			AvgProdSize:         int(math.Round(mean(acc.prodSizes))),
			AvgTestSize:         int(math.Round(mean(acc.testSizes))),
			AvgProdFiles:        round2(mean(acc.prodFiles)),
			AvgIterations:       round2(mean(acc.iterations)),
			AvgCommits:          round2(mean(acc.commits)),
			AvgChurnPct:         round1(mean(acc.churnPcts)),
			AvgFileChurn:        round2(mean(acc.fileChurns)),
			MedianResponseHours: round2(nearestRank(acc.responseHours, 0.5)),
			P90ResponseHours:    round2(nearestRank(acc.responseHours, 0.9)),
			AvgMergeHours:       round2(mean(acc.mergeHours)),
			MedianMergeHours:    round2(nearestRank(acc.mergeHours, 0.5)),
			CountsByRepo:        acc.countsByRepo,
		})
	}

	slices.SortFunc(summaries, func(a, b AuthorSummary) int {
		if c := cmp.Compare(b.PRsAuthored, a.PRsAuthored); c != 0 {
			return c
		}
		return cmp.Compare(a.Author, b.Author)
	})

	return summaries
}

// TeamSummarize computes the team-wide rollup from the valid PRs and the
// already-aggregated reviewer summaries.
func TeamSummarize(prs []EnrichedPR, reviewers []ReviewerSummary, cfg Config) TeamSummary {
	var authored TeamAuthored
	var sizes, prodSizes, testSizes, closeHours, iterations, churnPcts, fileChurns, commits []float64
	var responsePool []float64
	var sizeVals, prodVals, testVals, weights []float64

	for i := range prs {
		pr := &prs[i]
		if !pr.Valid() {
			continue
		}

		authored.PRCount++
		sizes = append(sizes, float64(pr.Size()))
		prodSizes = append(prodSizes, float64(pr.ProdSize()))
		testSizes = append(testSizes, float64(pr.TestSize()))
		iterations = append(iterations, float64(pr.IterationCount))
		churnPcts = append(churnPcts, pr.ChurnPercentage)
		fileChurns = append(fileChurns, float64(pr.FileChurnCount))
		commits = append(commits, float64(pr.CommitCount))

		if !pr.MergedAt.IsZero() {
			if h := WorkingHours(pr.CreatedAt, pr.MergedAt, cfg); h > 0 {
				closeHours = append(closeHours, h)
			}
		}
		if pr.FirstResponseAt != nil && !pr.FirstResponseAt.Before(pr.CreatedAt) {
			responsePool = append(responsePool, WorkingHours(pr.CreatedAt, *pr.FirstResponseAt, cfg))
		}

		// The reviewed size averages weight each PR by its distinct
		// reviewer count, which equals weighting the unrounded
		// per-reviewer means by PRs reviewed.
		distinct := make(map[string]bool)
		for _, rev := range pr.Reviews {
			if rev.Reviewer != "" {
				distinct[rev.Reviewer] = true
			}
		}
		if len(distinct) > 0 {
			sizeVals = append(sizeVals, float64(pr.Size()))
			prodVals = append(prodVals, float64(pr.ProdSize()))
			testVals = append(testVals, float64(pr.TestSize()))
			weights = append(weights, float64(len(distinct)))
		}
	}

	authored.AvgPRSize = int(math.Round(mean(sizes)))
	authored.AvgProdSize = int(math.Round(mean(prodSizes)))
	authored.AvgTestSize = int(math.Round(mean(testSizes)))
	authored.AvgCloseHours = round2(mean(closeHours))
	authored.AvgIterations = round2(mean(iterations))
	authored.AvgChurnPct = round1(mean(churnPcts))
	authored.AvgFileChurn = round2(mean(fileChurns))
	authored.AvgCommitsPerPR = round2(mean(commits))

	var reviewed TeamReviewed
	var totalApprovals, totalNoComment, totalInline int

	for _, r := range reviewers {
		reviewed.TotalReviews += r.TotalReviews
		totalApprovals += r.Approvals
		totalNoComment += r.NoCommentApprovals
		totalInline += r.InlineComments
	}

	reviewed.AvgPRSize = round2(weightedAvg(sizeVals, weights))
	reviewed.AvgProdSize = round2(weightedAvg(prodVals, weights))
	reviewed.AvgTestSize = round2(weightedAvg(testVals, weights))
	reviewed.MedianResponseHours = round2(nearestRank(responsePool, 0.5))
	if totalApprovals > 0 {
		reviewed.OverallNoCommentPct = round1(float64(totalNoComment) / float64(totalApprovals) * 100)
	}
	if reviewed.TotalReviews > 0 {
		reviewed.AvgInlineComments = round2(float64(totalInline) / float64(reviewed.TotalReviews))
	}

	return TeamSummary{Authored: authored, Reviewed: reviewed}
}

// Summarize runs the full aggregation pass: reviewer summaries, author
// summaries with quality scores, and the team rollup. This is the single
// code path shared by the batch collector and the dashboard's
// interactive recompute.
func Summarize(prs []EnrichedPR, cfg Config) (reviewers []ReviewerSummary, authors []AuthorSummary, team TeamSummary) {
	reviewers = AggregateReviewers(prs, cfg)
	authors = AggregateAuthors(prs, cfg)
	team = TeamSummarize(prs, reviewers, cfg)

	for i := range authors {
		a := &authors[i]
		a.QualityScore = QualityScore(DeveloperStats{
			AvgProdLines:  float64(a.AvgProdSize),
			AvgProdFiles:  a.AvgProdFiles,
			AvgIterations: a.AvgIterations,
			AvgCloseHours: a.AvgMergeHours,
			HasCloseData:  a.MergedPRs > 0,
			ChurnPct:      a.AvgChurnPct,
		}, team, cfg)
	}

	return reviewers, authors, team
}
