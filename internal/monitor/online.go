package monitor

import "time"

// IsOnline reports whether a device whose latest sample carries the given
// timestamp counts as online. An age exactly equal to the threshold counts as
// offline.
func IsOnline(latest, now time.Time, threshold time.Duration) bool {
	return now.Sub(latest) < threshold
}
