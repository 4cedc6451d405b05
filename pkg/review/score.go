package review

import "math"

// DeveloperStats is the per-developer input to the quality score.
// HasCloseData distinguishes "no merged PRs" from "merges instantly".
type DeveloperStats struct {
	AvgProdLines  float64
	AvgProdFiles  float64
	AvgIterations float64
	AvgCloseHours float64
	HasCloseData  bool
	ChurnPct      float64
}

// QualityScore rates a developer's PR hygiene on a 0..100 scale from four
// clamped linear sub-scores: change size, time to merge, review
// iterations, and churn. The team baseline is accepted for future
// relative scoring but the current thresholds come from cfg.
func QualityScore(dev DeveloperStats, baseline TeamSummary, cfg Config) int {
	_ = baseline

	lines := linearScore(dev.AvgProdLines, cfg.SizeLinesFloor, cfg.SizeLinesCeil)
	files := linearScore(dev.AvgProdFiles, cfg.SizeFilesFloor, cfg.SizeFilesCeil)
	size := (lines + files) / 2

	// Without merge data the close sub-score stays neutral rather than
	// rewarding or punishing an empty sample.
	closeScore := 50.0
	if dev.HasCloseData {
		closeScore = linearScore(dev.AvgCloseHours, cfg.CloseHoursFloor, cfg.CloseHoursCeil)
	}

	excess := math.Max(0, dev.AvgIterations-cfg.IterationFloor)
	span := cfg.IterationCeil - cfg.IterationFloor
	iteration := 0.0
	if span > 0 {
		iteration = clamp(100*(1-excess/span), 0, 100)
	} else if excess == 0 {
		iteration = 100
	}

	churn := 0.0
	if cfg.ChurnCeilPct > 0 {
		churn = clamp(100*(1-dev.ChurnPct/cfg.ChurnCeilPct), 0, 100)
	}

	total := size*cfg.SizeWeight +
		closeScore*cfg.CloseTimeWeight +
		iteration*cfg.IterationWeight +
		churn*cfg.ChurnWeight

	return int(clamp(math.Round(total), 0, 100))
}

// linearScore maps v onto 100..0 across [floor, ceil]: at or below the
// floor scores 100, at or above the ceil scores 0.
func linearScore(v, floor, ceil float64) float64 {
	if ceil <= floor {
		if v <= floor {
			return 100
		}
		return 0
	}
	return clamp(100*(1-(v-floor)/(ceil-floor)), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
