package hlem

import (
	"testing"
	"time"
)

func TestFrameOfDay(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{"epoch noon", time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC), 0},
		{"next day", time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), 1},
		{"pre-epoch", time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC), -1},
		{"modern", time.Date(2017, 1, 2, 9, 30, 0, 0, time.UTC), 17168},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Day.FrameOf(tt.ts); got != tt.want {
				t.Errorf("FrameOf(%v) = %d, want %d", tt.ts, got, tt.want)
			}
		})
	}
}

func TestFrameOfWeekMondayAligned(t *testing.T) {
	// 1970-01-05 was a Monday; the week starting there must be one frame
	// after the epoch week, and all seven days must share it.
	monday := time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)
	frame := Week.FrameOf(monday)
	if frame != Week.FrameOf(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))+1 {
		t.Fatalf("monday frame %d not adjacent to epoch week", frame)
	}
	for d := 0; d < 7; d++ {
		ts := monday.AddDate(0, 0, d)
		if got := Week.FrameOf(ts); got != frame {
			t.Errorf("FrameOf(%v) = %d, want %d", ts, got, frame)
		}
	}
	sunday := monday.AddDate(0, 0, -1)
	if got := Week.FrameOf(sunday); got != frame-1 {
		t.Errorf("sunday belongs to frame %d, want %d", got, frame-1)
	}
}

func TestFrameOfMonth(t *testing.T) {
	jan := time.Date(1970, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(1970, 2, 1, 0, 0, 0, 0, time.UTC)
	if Month.FrameOf(feb)-Month.FrameOf(jan) != 1 {
		t.Errorf("february must directly follow january")
	}
	dec := time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC)
	jan17 := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	if Month.FrameOf(jan17)-Month.FrameOf(dec) != 1 {
		t.Errorf("year boundary must not break adjacency")
	}
}

func TestFrameStartRoundTrip(t *testing.T) {
	for _, g := range []Granularity{Day, Week, Month} {
		for _, f := range []int{0, 1, 17168, 2500, 24204} {
			start := g.FrameStart(f)
			if got := g.FrameOf(start); got != f {
				t.Errorf("%s: FrameOf(FrameStart(%d)) = %d", g, f, got)
			}
			// The instant just before the frame start belongs to the
			// previous frame.
			if got := g.FrameOf(start.Add(-time.Second)); got != f-1 {
				t.Errorf("%s: frame before start of %d = %d, want %d", g, f, got, f-1)
			}
		}
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    Granularity
		wantErr bool
	}{
		{"day", Day, false},
		{"days", Day, false},
		{"Week", Week, false},
		{"months", Month, false},
		{"hour", Day, true},
	}
	for _, tt := range tests {
		got, err := ParseGranularity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGranularity(%q) error = %v", tt.in, err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseGranularity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
