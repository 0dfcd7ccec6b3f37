package catalog

import "time"

// nowPtr returns a pointer to the current time, for optional timestamp
// columns like Package.RemovedAt and Release.WorkingReleaseTS.
func nowPtr() *time.Time {
	t := time.Now()
	return &t
}

// timeZero is the "since the beginning of time" lower bound used when a
// release has never published, so every currently-linked package counts
// as a pending change.
var timeZero = time.Time{}
