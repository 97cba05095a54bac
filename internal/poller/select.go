// internal/poller/select.go
package poller

import "time"

// pick returns the index of the job to run at now, or -1 when none is
// eligible. A job is eligible once now has reached both its due time and
// the end of its backoff. The lowest priority value wins; among equal
// priorities the job furthest past its due time wins; remaining ties go
// to the earlier catalog index.
func pick(now time.Duration, jobs []job) int {
	best := -1
	var bestLate time.Duration

	for i := range jobs {
		j := &jobs[i]

		if now < j.backoffUntil || now < j.nextDue {
			continue
		}

		late := now - j.nextDue
		if best < 0 ||
			j.Priority < jobs[best].Priority ||
			(j.Priority == jobs[best].Priority && late > bestLate) {
			best = i
			bestLate = late
		}
	}

	return best
}
