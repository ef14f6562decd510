package hlem

import "time"

// Frames are absolute time buckets indexed from the Unix epoch, so the frame
// of a timestamp is a pure function of the timestamp and the granularity.
// Two runs over the same log therefore always agree on frame boundaries.

const secondsPerDay = 86400

// FrameOf returns the frame index of t under granularity g.
func (g Granularity) FrameOf(t time.Time) int {
	switch g {
	case Week:
		// Monday-aligned ISO weeks; the epoch fell on a Thursday.
		return floorDiv(epochDays(t)+3, 7)
	case Month:
		y, m, _ := t.UTC().Date()
		return y*12 + int(m) - 1
	default:
		return epochDays(t)
	}
}

// FrameStart returns the first instant of frame index f.
func (g Granularity) FrameStart(f int) time.Time {
	switch g {
	case Week:
		return time.Unix(int64(f*7-3)*secondsPerDay, 0).UTC()
	case Month:
		return time.Date(f/12, time.Month(f%12+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Unix(int64(f)*secondsPerDay, 0).UTC()
	}
}

// epochDays returns the number of whole days since the Unix epoch,
// correct for pre-epoch timestamps.
func epochDays(t time.Time) int {
	return floorDiv(int(t.Unix()), secondsPerDay)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// frameRange is the inclusive global frame span of a log.
type frameRange struct {
	min, max int
}

// width returns the number of frames in the range.
func (r frameRange) width() int {
	return r.max - r.min + 1
}
