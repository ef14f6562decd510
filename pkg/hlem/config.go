// Package hlem mines high-level events (HLEs) from a low-level process event
// log and chains co-occurring HLEs into high-level activity paths using
// overlap-based connection rules.
//
// The pipeline runs in three stages: time-windowed feature extraction per
// activity/resource/segment entity, percentile-based classification of
// feature values into High/Low traffic events, and overlap-driven path
// construction with maximality and frequency filtering.
package hlem

import (
	"strings"

	"github.com/pippi2802/hlem-framework/pkg/errors"
)

// Granularity is the frame bucket size for windowing.
type Granularity uint8

const (
	Day Granularity = iota
	Week
	Month
)

// String returns the granularity name.
func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return "unknown"
	}
}

// ParseGranularity parses a granularity name. Accepts the plural forms the
// original experiment drivers used ("days", "weeks", "months").
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSuffix(s, "s")) {
	case "day":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	default:
		return Day, errors.New(errors.CodeInvalidGranularity, "unknown frame granularity").
			WithContext("granularity", s)
	}
}

// Traffic labels a classified feature value.
type Traffic uint8

const (
	High Traffic = iota
	Low
)

// String returns the traffic label.
func (t Traffic) String() string {
	if t == Low {
		return "Low"
	}
	return "High"
}

// ParseTraffic parses one or more comma-separated traffic labels.
func ParseTraffic(s string) ([]Traffic, error) {
	var out []Traffic
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "high":
			out = append(out, High)
		case "low":
			out = append(out, Low)
		case "":
		default:
			return nil, errors.New(errors.CodeInvalidThreshold, "unknown traffic type").
				WithContext("traffic", part)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.CodeInvalidThreshold, "no traffic type selected")
	}
	return out, nil
}

// Feature identifies a high-level feature measure.
type Feature uint8

const (
	FeatureExit Feature = iota
	FeatureEnter
	FeatureHandover
	FeatureWorkload
	FeatureBatch
	FeatureDelay
	FeatureExec
	FeatureTodo
	FeatureProgress
	FeatureWaitingTime
)

var featureNames = map[Feature]string{
	FeatureExit:        "exit",
	FeatureEnter:       "enter",
	FeatureHandover:    "handover",
	FeatureWorkload:    "workload",
	FeatureBatch:       "batch",
	FeatureDelay:       "delay",
	FeatureExec:        "exec",
	FeatureTodo:        "todo",
	FeatureProgress:    "progress",
	FeatureWaitingTime: "wt",
}

// String returns the feature name.
func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return "unknown"
}

// ParseFeature parses a feature name.
func ParseFeature(s string) (Feature, error) {
	for f, n := range featureNames {
		if n == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, errors.New(errors.CodeEmptyFeatureList, "unknown feature type").
		WithContext("feature", s)
}

// ParseFeatures parses a comma-separated feature list.
func ParseFeatures(s string) ([]Feature, error) {
	var out []Feature
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFeature(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// SegMethodDF is the directly-follows segmentation method, currently the
// only supported one.
const SegMethodDF = "df"

// Config carries the full mining configuration. It is immutable once a run
// starts; no stage mutates it.
type Config struct {
	// Granularity is the frame bucket size (day/week/month).
	Granularity Granularity

	// Traffic selects which labels to emit (High, Low or both).
	Traffic []Traffic

	// Features is the non-empty set of feature measures to compute.
	Features []Feature

	// Percentile p separates High from Low traffic, 50 < p < 100
	// (fractions in (0.5, 1) are accepted and treated as p*100).
	Percentile float64

	// CoThresh is the pairwise overlap threshold for the first link of a
	// path.
	CoThresh float64

	// CoPathThresh is the overlap threshold for extending an already
	// multi-step path.
	CoPathThresh float64

	// ResourceInfo enables resource-keyed entities. Must be false for logs
	// without resource attributes.
	ResourceInfo bool

	// OnlyMaximalPaths enables maximality pruning.
	OnlyMaximalPaths bool

	// MinPathFrequency drops paths with fewer participating cases.
	MinPathFrequency int

	// ActivitySelection restricts eligible activities; nil means all.
	ActivitySelection []string

	// ResourceSelection restricts eligible resources; nil means all.
	ResourceSelection []string

	// SegMethod selects how entities are segmented; only "df" is supported.
	SegMethod string

	// TypeBased partitions feature computation by executing resource before
	// aggregation.
	TypeBased bool

	// SegPercentile is the percentile used for the step-duration cutoff of
	// the delay feature and for type-based group thresholds.
	SegPercentile float64

	// MaxPathLength caps path growth; 0 means unlimited.
	MaxPathLength int
}

// DefaultConfig returns the configuration the original BPIC experiments ran
// with.
func DefaultConfig() Config {
	return Config{
		Granularity: Day,
		Traffic:     []Traffic{High},
		Features: []Feature{
			FeatureExit, FeatureEnter, FeatureHandover,
			FeatureWorkload, FeatureBatch, FeatureDelay,
		},
		Percentile:       90,
		CoThresh:         0.5,
		CoPathThresh:     0.5,
		ResourceInfo:     true,
		OnlyMaximalPaths: true,
		MinPathFrequency: 10,
		SegMethod:        SegMethodDF,
		SegPercentile:    90,
	}
}

// normalizePercentile maps both conventions (0.9 and 90) onto a fraction.
func normalizePercentile(p float64) float64 {
	if p > 1 {
		return p / 100
	}
	return p
}

// Validate checks the configuration and normalizes the percentiles to
// fractions. Configuration errors are fatal and reported before any
// computation starts.
func (c *Config) Validate() error {
	c.Percentile = normalizePercentile(c.Percentile)
	c.SegPercentile = normalizePercentile(c.SegPercentile)

	if c.Percentile <= 0.5 || c.Percentile >= 1 {
		return errors.InvalidPercentile(c.Percentile * 100)
	}
	if c.SegPercentile <= 0 || c.SegPercentile >= 1 {
		return errors.InvalidPercentile(c.SegPercentile * 100)
	}
	if len(c.Features) == 0 {
		return errors.New(errors.CodeEmptyFeatureList, "feature list must not be empty")
	}
	if c.SegMethod == "" {
		c.SegMethod = SegMethodDF
	}
	if c.SegMethod != SegMethodDF {
		return errors.UnsupportedSegMethod(c.SegMethod)
	}
	if len(c.Traffic) == 0 {
		c.Traffic = []Traffic{High}
	}
	if c.CoThresh < 0 || c.CoThresh > 1 {
		return errors.New(errors.CodeInvalidThreshold, "co_thresh must lie in [0,1]").
			WithContext("co_thresh", c.CoThresh)
	}
	if c.CoPathThresh < 0 || c.CoPathThresh > 1 {
		return errors.New(errors.CodeInvalidThreshold, "co_path_thresh must lie in [0,1]").
			WithContext("co_path_thresh", c.CoPathThresh)
	}
	if c.MinPathFrequency < 0 {
		return errors.New(errors.CodeInvalidThreshold, "min path frequency must be non-negative").
			WithContext("min_path_frequency", c.MinPathFrequency)
	}
	return nil
}

// wantsTraffic reports whether the label is selected.
func (c *Config) wantsTraffic(t Traffic) bool {
	for _, sel := range c.Traffic {
		if sel == t {
			return true
		}
	}
	return false
}

// activityAllowed reports whether an activity passes the selection.
func (c *Config) activityAllowed(a string) bool {
	if len(c.ActivitySelection) == 0 {
		return true
	}
	for _, sel := range c.ActivitySelection {
		if sel == a {
			return true
		}
	}
	return false
}

// resourceAllowed reports whether a resource passes the selection.
func (c *Config) resourceAllowed(r string) bool {
	if len(c.ResourceSelection) == 0 {
		return true
	}
	for _, sel := range c.ResourceSelection {
		if sel == r {
			return true
		}
	}
	return false
}
