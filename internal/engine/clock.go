package engine

import "time"

// Clock supplies the timestamps stamped onto active ranges.
//
// Injected so tests can pin revision boundaries to exact instants; the
// production implementation is the system clock in UTC.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
