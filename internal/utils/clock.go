package utils

import "time"

// Clock abstracts the wall clock so expiry checks can be tested.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// UnixNow returns the clock's current time in Unix seconds.
func UnixNow(c Clock) int64 {
	return c.Now().Unix()
}

// ExpiresAt returns the Unix-seconds timestamp ttl after now.
func ExpiresAt(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).Unix()
}

// IsExpired reports whether a Unix-seconds expiry is not strictly in the future.
func IsExpired(expiredAt int64, now time.Time) bool {
	return expiredAt <= now.Unix()
}
