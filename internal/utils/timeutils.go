package utils

import (
	"math"
	"time"
)

// EpochSeconds converts a time into floating-point seconds since the Unix
// epoch, the representation devices use on the wire.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpochSeconds converts floating-point epoch seconds into a time.
// Values are taken as-is; negative or absurd inputs produce the
// corresponding time rather than an error.
func FromEpochSeconds(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
