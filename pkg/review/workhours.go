package review

import "time"

const hoursPerDay = 24.0

// WorkingHours converts a wall-clock interval into business exposure hours
// by subtracting weekday nights and whole weekend days. The exposed window
// is [WorkdayStartHour, WorkdayEndHour) on Monday through Friday.
//
// Day and hour boundaries are evaluated in start's own location, so the
// result depends only on the two timestamps. Returns 0 when end is at or
// before start; never returns a negative value.
func WorkingHours(start, end time.Time, cfg Config) float64 {
	if !end.After(start) {
		return 0
	}

	total := end.Sub(start).Hours()

	// Walk the interval one calendar day at a time, accumulating the
	// hours that fall outside the exposed window.
	var removed float64
	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for day.Before(end) {
		next := day.AddDate(0, 0, 1)

		// Weekend status comes from the day's local midnight; a span
		// that starts Friday evening still has its Friday portion
		// treated as a weekday.
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			removed += overlapHours(day, next, start, end)
		} else {
			morning := day.Add(time.Duration(cfg.WorkdayStartHour) * time.Hour)
			evening := day.Add(time.Duration(cfg.WorkdayEndHour) * time.Hour)
			removed += overlapHours(day, morning, start, end)
			removed += overlapHours(evening, next, start, end)
		}

		day = next
	}

	if removed >= total {
		return 0
	}
	return total - removed
}

// overlapHours returns the length in hours of the intersection of
// [aStart, aEnd) and [bStart, bEnd), or 0 when they do not overlap.
func overlapHours(aStart, aEnd, bStart, bEnd time.Time) float64 {
	lo := aStart
	if bStart.After(lo) {
		lo = bStart
	}
	hi := aEnd
	if bEnd.Before(hi) {
		hi = bEnd
	}
	if !hi.After(lo) {
		return 0
	}
	return hi.Sub(lo).Hours()
}
