package adapter

import "time"

// Clock abstracts "now" so expiry math, the 30-day token cap and the sweep
// logic are deterministic under test. No component reads time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
