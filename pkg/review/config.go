// Package review derives working-hours-adjusted review metrics from raw
// pull request data. Raw PR, review, comment, and commit records are folded
// into enriched per-PR records, then into per-reviewer, per-author, and
// team summaries with a weighted quality score.
package review

// Config holds all tunable parameters for metric derivation.
type Config struct {
	// Start of the exposed workday window, local hour (default: 10)
	WorkdayStartHour int

	// End of the exposed workday window, local hour (default: 18)
	WorkdayEndHour int

	// Substrings that mark a path as a test file (default: "_test.",
	// ".test.", ".spec.", "tests/", "__tests__/", "spec/").
	// Matching is plain substring containment, not glob.
	TestPathPatterns []string

	// Quality score sub-score weights (must sum to 1.0)
	SizeWeight      float64
	CloseTimeWeight float64
	IterationWeight float64
	ChurnWeight     float64

	// Size sub-score: 100 at or below the floor, 0 at or above the ceiling
	SizeLinesFloor float64 // default: 100 production lines
	SizeLinesCeil  float64 // default: 400
	SizeFilesFloor float64 // default: 4 production files
	SizeFilesCeil  float64 // default: 10

	// Close-time sub-score bounds in working hours
	CloseHoursFloor float64 // default: 2
	CloseHoursCeil  float64 // default: 8

	// Iteration sub-score bounds in average review rounds
	IterationFloor float64 // default: 1
	IterationCeil  float64 // default: 4

	// Churn sub-score ceiling as a percentage
	ChurnCeilPct float64 // default: 50
}

// DefaultConfig returns the standard thresholds for metric derivation.
func DefaultConfig() Config {
	return Config{
		WorkdayStartHour: 10,
		WorkdayEndHour:   18,
		TestPathPatterns: []string{"_test.", ".test.", ".spec.", "tests/", "__tests__/", "spec/"},
		SizeWeight:       0.35,
		CloseTimeWeight:  0.30,
		IterationWeight:  0.20,
		ChurnWeight:      0.15,
		SizeLinesFloor:   100,
		SizeLinesCeil:    400,
		SizeFilesFloor:   4,
		SizeFilesCeil:    10,
		CloseHoursFloor:  2,
		CloseHoursCeil:   8,
		IterationFloor:   1,
		IterationCeil:    4,
		ChurnCeilPct:     50,
	}
}
