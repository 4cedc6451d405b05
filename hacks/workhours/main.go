// Package main prints the working-hours span between two timestamps.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <start RFC3339> <end RFC3339>\n", os.Args[0])
		os.Exit(1)
	}

	start, err := time.Parse(time.RFC3339, os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad start time: %v\n", err)
		os.Exit(1)
	}
	end, err := time.Parse(time.RFC3339, os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad end time: %v\n", err)
		os.Exit(1)
	}

	cfg := review.DefaultConfig()
	fmt.Printf("Wall clock: %.2fh\n", end.Sub(start).Hours())
	fmt.Printf("Working hours (%02d:00-%02d:00 Mon-Fri): %.2fh\n",
		cfg.WorkdayStartHour, cfg.WorkdayEndHour, review.WorkingHours(start, end, cfg))
}
