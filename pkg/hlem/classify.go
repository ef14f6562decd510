package hlem

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// classifySeries converts one dense feature series into high-level events.
// The threshold is the empirical p-th percentile of the series' values, so
// the classification of a value depends only on the group's distribution —
// never on iteration order.
//
// A value at or above the p-th percentile is High traffic; a value at or
// below the (1-p)-th percentile is Low traffic; values strictly between are
// discarded. Series that never measured anything (all zeros) carry no
// signal and emit nothing.
func classifySeries(s *series, cfg *Config) []HighLevelEvent {
	p := cfg.Percentile
	if cfg.TypeBased && s.key.group != "" {
		p = cfg.SegPercentile
	}

	sorted := make([]float64, len(s.values))
	copy(sorted, s.values)
	sort.Float64s(sorted)

	if sorted[len(sorted)-1] == 0 {
		return nil
	}

	qHigh := stat.Quantile(p, stat.Empirical, sorted, nil)
	qLow := stat.Quantile(1-p, stat.Empirical, sorted, nil)

	var out []HighLevelEvent
	for i, v := range s.values {
		frame := s.base + i
		if cfg.wantsTraffic(High) && v >= qHigh {
			out = append(out, s.event(frame, High, v))
		}
		if cfg.wantsTraffic(Low) && v <= qLow {
			out = append(out, s.event(frame, Low, v))
		}
	}
	return out
}

// event materializes an immutable high-level event for a frame.
func (s *series) event(frame int, class Traffic, value float64) HighLevelEvent {
	return HighLevelEvent{
		ID: EventID{
			Frame:   frame,
			Entity:  s.key.entity,
			Feature: s.key.feature,
			Class:   class,
			Group:   s.key.group,
		},
		Value: value,
		Cases: s.casesAt(frame).Clone(),
	}
}

// classifyAll runs the classifier over a series slice and keys the result by
// event identifier.
func classifyAll(all []*series, cfg *Config) map[EventID]HighLevelEvent {
	out := make(map[EventID]HighLevelEvent)
	for _, s := range all {
		for _, hle := range classifySeries(s, cfg) {
			out[hle.ID] = hle
		}
	}
	return out
}
