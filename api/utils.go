package api

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastTimestamp int64

// nextTimestamp returns the current time in nanoseconds, bumped past the
// previously issued value so concurrent callers never observe a duplicate.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

// newID generates an application-level identifier: a current-time-derived
// decimal string, unique within the process.
func newID() string {
	return strconv.FormatInt(nextTimestamp(), 10)
}
