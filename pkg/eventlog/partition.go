package eventlog

import (
	"time"

	"github.com/RoaringBitmap/roaring"
)

// Universe returns the bitmap of all case IDs in the log.
func (l *Log) Universe() *roaring.Bitmap {
	u := roaring.New()
	for i := range l.cases {
		u.Add(uint32(l.cases[i].ID))
	}
	return u
}

// PartitionByActivity splits the case universe into cases containing the
// marker activity and cases without it. For the BPIC 2017 outcome analysis
// the marker is "A_Pending" (offer accepted).
func (l *Log) PartitionByActivity(marker string) (with, without *roaring.Bitmap) {
	with, without = roaring.New(), roaring.New()
	for i := range l.cases {
		c := &l.cases[i]
		found := false
		for j := range c.Events {
			if c.Events[j].Activity == marker {
				found = true
				break
			}
		}
		if found {
			with.Add(uint32(c.ID))
		} else {
			without.Add(uint32(c.ID))
		}
	}
	return with, without
}

// PartitionByThroughput buckets cases into three classes by total duration:
// under lo, between lo and hi (inclusive of lo), and over hi.
func (l *Log) PartitionByThroughput(lo, hi time.Duration) [3]*roaring.Bitmap {
	out := [3]*roaring.Bitmap{roaring.New(), roaring.New(), roaring.New()}
	for i := range l.cases {
		c := &l.cases[i]
		if len(c.Events) == 0 {
			continue
		}
		d := c.Duration()
		switch {
		case d < lo:
			out[0].Add(uint32(c.ID))
		case d <= hi:
			out[1].Add(uint32(c.ID))
		default:
			out[2].Add(uint32(c.ID))
		}
	}
	return out
}
