// Package main prints the default review metric configuration values.
package main

import (
	"fmt"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

func main() {
	cfg := review.DefaultConfig()
	fmt.Printf("WorkdayStartHour: %d\n", cfg.WorkdayStartHour)
	fmt.Printf("WorkdayEndHour: %d\n", cfg.WorkdayEndHour)
	fmt.Printf("TestPathPatterns: %v\n", cfg.TestPathPatterns)
	fmt.Printf("Weights: size=%.2f close=%.2f iteration=%.2f churn=%.2f\n",
		cfg.SizeWeight, cfg.CloseTimeWeight, cfg.IterationWeight, cfg.ChurnWeight)
	fmt.Printf("SizeLines: floor=%.0f ceil=%.0f\n", cfg.SizeLinesFloor, cfg.SizeLinesCeil)
	fmt.Printf("SizeFiles: floor=%.0f ceil=%.0f\n", cfg.SizeFilesFloor, cfg.SizeFilesCeil)
	fmt.Printf("CloseHours: floor=%.0f ceil=%.0f\n", cfg.CloseHoursFloor, cfg.CloseHoursCeil)
	fmt.Printf("Iterations: floor=%.0f ceil=%.0f\n", cfg.IterationFloor, cfg.IterationCeil)
	fmt.Printf("ChurnCeilPct: %.0f\n", cfg.ChurnCeilPct)
}
