package review

import "strings"

// FileMetrics accumulates line and file counts for a diff, split into
// production and test buckets. Every file lands in exactly one bucket,
// so prod + test always equals the totals.
type FileMetrics struct {
	TotalAdditions   int `json:"total_additions"`
	TotalDeletions   int `json:"total_deletions"`
	ProdAdditions    int `json:"prod_additions"`
	ProdDeletions    int `json:"prod_deletions"`
	TestAdditions    int `json:"test_additions"`
	TestDeletions    int `json:"test_deletions"`
	FilesChanged     int `json:"files_changed"`
	ProdFilesChanged int `json:"prod_files_changed"`
	TestFilesChanged int `json:"test_files_changed"`
}

// ClassifyFiles partitions a diff into test and production buckets.
// A file is a test file iff its path contains any of the patterns as a
// plain substring; patterns are not globs.
func ClassifyFiles(files []FileChange, patterns []string) FileMetrics {
	var m FileMetrics

	for _, file := range files {
		m.TotalAdditions += file.Additions
		m.TotalDeletions += file.Deletions
		m.FilesChanged++

		if isTestPath(file.Filename, patterns) {
			m.TestAdditions += file.Additions
			m.TestDeletions += file.Deletions
			m.TestFilesChanged++
		} else {
			m.ProdAdditions += file.Additions
			m.ProdDeletions += file.Deletions
			m.ProdFilesChanged++
		}
	}

	return m
}

// isTestPath reports whether the path contains any pattern substring.
func isTestPath(path string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}
