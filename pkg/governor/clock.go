package governor

import "time"

// Clock provides the governor's notion of current time. Production code uses
// SystemClock; tests inject a controllable clock so refill and breaker
// timeout math can be exercised without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
