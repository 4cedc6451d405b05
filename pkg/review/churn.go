package review

// ChurnResult describes how much of a PR's added code re-touched files
// already changed by an earlier commit in the same PR.
type ChurnResult struct {
	// Percentage of added lines that landed in an already-touched file,
	// 0-100 with one decimal. This is a lower bound on rework: it only
	// detects re-touching the same file, not re-adding the same lines.
	ChurnPercentage float64 `json:"churn_percentage"`

	// Number of files touched by more than one commit.
	FileChurnCount int `json:"file_churn_count"`
}

// Churn measures rework across a PR's commits. Commits must be in
// chronological order. Fewer than two commits cannot show rework, so an
// empty or single-commit list yields a zero result.
func Churn(commits []Commit) ChurnResult {
	if len(commits) <= 1 {
		return ChurnResult{}
	}

	var totalAdditions, reworkAdditions int
	touchedIn := make(map[string]map[int]bool) // filename -> commit indices

	for i, commit := range commits {
		for _, file := range commit.Files {
			totalAdditions += file.Additions

			seenEarlier := false
			for j := range touchedIn[file.Filename] {
				if j < i {
					seenEarlier = true
					break
				}
			}
			if seenEarlier {
				reworkAdditions += file.Additions
			}

			if touchedIn[file.Filename] == nil {
				touchedIn[file.Filename] = make(map[int]bool)
			}
			touchedIn[file.Filename][i] = true
		}
	}

	churnCount := 0
	for _, indices := range touchedIn {
		if len(indices) > 1 {
			churnCount++
		}
	}

	var pct float64
	if totalAdditions > 0 {
		pct = round1(float64(reworkAdditions) / float64(totalAdditions) * 100)
	}

	return ChurnResult{
		ChurnPercentage: pct,
		FileChurnCount:  churnCount,
	}
}
