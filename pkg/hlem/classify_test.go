package hlem

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
)

// buildSeries assembles a dense series with one contributing case per frame.
func buildSeries(entity Entity, feature Feature, base int, values []float64) *series {
	s := &series{
		key:    seriesKey{entity: entity, feature: feature},
		base:   base,
		values: values,
		cases:  make([]*roaring.Bitmap, len(values)),
	}
	for i := range values {
		s.cases[i] = roaring.BitmapOf(uint32(i))
	}
	return s
}

func TestClassifySeriesHigh(t *testing.T) {
	// Values 10, 2, 9: at p=0.9 the empirical threshold is 10, so only the
	// first frame is High traffic.
	s := buildSeries(SegmentEntity("A", "B"), FeatureExit, 100, []float64{10, 2, 9})
	cfg := &Config{Percentile: 0.9, Traffic: []Traffic{High}}

	hles := classifySeries(s, cfg)
	if len(hles) != 1 {
		t.Fatalf("got %d events, want 1", len(hles))
	}
	hle := hles[0]
	if hle.ID.Frame != 100 {
		t.Errorf("frame = %d, want 100", hle.ID.Frame)
	}
	if hle.ID.Class != High {
		t.Errorf("class = %v, want High", hle.ID.Class)
	}
	if hle.Value != 10 {
		t.Errorf("value = %v, want 10", hle.Value)
	}
	if !hle.Cases.Contains(0) || hle.Cases.GetCardinality() != 1 {
		t.Errorf("cases = %v, want {0}", hle.Cases.ToArray())
	}
}

func TestClassifySeriesLow(t *testing.T) {
	s := buildSeries(SegmentEntity("A", "B"), FeatureExit, 0, []float64{10, 2, 9})
	cfg := &Config{Percentile: 0.9, Traffic: []Traffic{Low}}

	hles := classifySeries(s, cfg)
	if len(hles) != 1 {
		t.Fatalf("got %d events, want 1", len(hles))
	}
	if hles[0].ID.Frame != 1 || hles[0].ID.Class != Low || hles[0].Value != 2 {
		t.Errorf("got %+v, want Low value 2 at frame 1", hles[0].ID)
	}
}

func TestClassifySeriesBothLabels(t *testing.T) {
	s := buildSeries(ActivityEntity("A"), FeatureExec, 0, []float64{10, 2, 9})
	cfg := &Config{Percentile: 0.9, Traffic: []Traffic{High, Low}}

	hles := classifySeries(s, cfg)
	if len(hles) != 2 {
		t.Fatalf("got %d events, want 2", len(hles))
	}
}

func TestClassifySeriesAllZero(t *testing.T) {
	s := buildSeries(ActivityEntity("A"), FeatureExec, 0, []float64{0, 0, 0})
	cfg := &Config{Percentile: 0.9, Traffic: []Traffic{High, Low}}

	if hles := classifySeries(s, cfg); hles != nil {
		t.Errorf("all-zero series emitted %d events", len(hles))
	}
}

func TestClassifySeriesCasesAreCopies(t *testing.T) {
	s := buildSeries(ActivityEntity("A"), FeatureExec, 0, []float64{5})
	cfg := &Config{Percentile: 0.9, Traffic: []Traffic{High}}

	hles := classifySeries(s, cfg)
	if len(hles) != 1 {
		t.Fatalf("got %d events, want 1", len(hles))
	}
	hles[0].Cases.Add(99)
	if s.cases[0].Contains(99) {
		t.Error("classifier leaked the series' internal bitmap")
	}
}
