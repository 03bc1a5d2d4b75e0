package scheduler

import "time"

// secondsPerDay is the cadence base; posts_per_day divides it.
const secondsPerDay = 86400

// maxPostsPerDay keeps Interval at one second or more; a finer cadence
// would truncate to a zero interval and the anchor advance could never
// pass the current moment.
const maxPostsPerDay = secondsPerDay

// Cadence describes the publish rhythm.
type Cadence struct {
	// PostsPerDay divides the day into equal publish slots.
	PostsPerDay int
	// StartDelay shifts every slot away from midnight.
	StartDelay time.Duration
	// PreloadLead is how long before each publish the queue is filled.
	PreloadLead time.Duration
}

// Interval returns the time between consecutive publish slots.
func (c Cadence) Interval() time.Duration {
	return time.Duration(secondsPerDay/c.PostsPerDay) * time.Second
}

// nextAnchors computes the next preload and publish instants strictly
// after now. Both are anchored at local midnight, shifted by the start
// delay, and advanced in whole intervals; the publish instant always
// trails the preload instant by exactly the preload lead.
func nextAnchors(now time.Time, cadence Cadence) (preload, publish time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	interval := cadence.Interval()
	preload = midnight.Add(cadence.StartDelay - cadence.PreloadLead)
	for !preload.After(now) {
		preload = preload.Add(interval)
	}

	return preload, preload.Add(cadence.PreloadLead)
}
