package hlem

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/pippi2802/hlem-framework/pkg/errors"
	"github.com/pippi2802/hlem-framework/pkg/eventlog"
)

// testLog builds a log where day 0 carries heavy A->B traffic (8 cases) and
// days 1 and 2 carry light traffic (2 cases each).
func testLog() *eventlog.Log {
	day := func(d int) time.Time {
		return time.Date(2017, 1, 2, 8, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}
	var cases []eventlog.Case
	addCase := func(name string, d int) {
		cases = append(cases, eventlog.Case{
			Name: name,
			Events: []eventlog.Event{
				{Activity: "A", Timestamp: day(d), Resource: "r1"},
				{Activity: "B", Timestamp: day(d).Add(time.Hour), Resource: "r2"},
			},
		})
	}
	for i := 0; i < 8; i++ {
		addCase("busy", 0)
	}
	addCase("q1", 1)
	addCase("q2", 1)
	addCase("q3", 2)
	addCase("q4", 2)
	return eventlog.New(cases)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Features = []Feature{FeatureExit, FeatureEnter}
	cfg.ResourceInfo = false
	cfg.MinPathFrequency = 1
	return cfg
}

func TestMineFindsHighTrafficDay(t *testing.T) {
	log := testLog()
	hles, paths, err := Mine(context.Background(), log, testConfig())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	if len(hles) != 2 {
		t.Fatalf("got %d high-level events, want 2 (exit and enter on the busy day)", len(hles))
	}
	busyFrame := Day.FrameOf(time.Date(2017, 1, 2, 8, 0, 0, 0, time.UTC))
	for id, hle := range hles {
		if id.Frame != busyFrame {
			t.Errorf("event %s in frame %d, want %d", id, id.Frame, busyFrame)
		}
		if id.Class != High {
			t.Errorf("event %s classified %s, want High", id, id.Class)
		}
		if hle.Value != 8 {
			t.Errorf("event %s value %v, want 8", id, hle.Value)
		}
		if hle.Cases.GetCardinality() != 8 {
			t.Errorf("event %s has %d cases, want 8", id, hle.Cases.GetCardinality())
		}
	}

	// exit(A,B) and enter(A,B) do not connect (B != A), so both survive as
	// singleton paths.
	if len(paths) != 2 {
		t.Errorf("got %d paths, want 2 singletons", len(paths))
	}
	for _, p := range paths {
		if p.Len() != 1 {
			t.Errorf("path %s has %d elements, want 1", p.Key(), p.Len())
		}
	}
}

func TestMineDeterministic(t *testing.T) {
	run := func() ([]string, []string) {
		hles, paths, err := Mine(context.Background(), testLog(), testConfig())
		if err != nil {
			t.Fatalf("Mine: %v", err)
		}
		var hleKeys []string
		for id := range hles {
			hleKeys = append(hleKeys, id.String())
		}
		sort.Strings(hleKeys)
		var pathKeys []string
		for k := range paths {
			pathKeys = append(pathKeys, string(k))
		}
		sort.Strings(pathKeys)
		return hleKeys, pathKeys
	}

	h1, p1 := run()
	for i := 0; i < 5; i++ {
		h2, p2 := run()
		if !reflect.DeepEqual(h1, h2) || !reflect.DeepEqual(p1, p2) {
			t.Fatal("results differ between runs over the same log")
		}
	}
}

func TestMineStatistics(t *testing.T) {
	log := testLog()
	cfg := testConfig()
	hles, paths, err := Mine(context.Background(), log, cfg)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	table := GatherStatistics(hles, paths, log.ControlFlow(), cfg.Percentile, cfg.CoThresh)
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	for _, r := range table.Rows {
		if got := r.Participating.GetCardinality(); got != 8 {
			t.Errorf("%s: %d participating cases, want 8", r.Path.Key(), got)
		}
		if got := r.NonParticipating.GetCardinality(); got != 4 {
			t.Errorf("%s: %d non-participating cases, want 4", r.Path.Key(), got)
		}
		if r.Participating.AndCardinality(r.NonParticipating) != 0 {
			t.Errorf("%s: participation sets overlap", r.Path.Key())
		}
	}
}

func TestMineEmptyResultIsNotError(t *testing.T) {
	// One case, one event: no steps, so segment features never fire.
	log := eventlog.New([]eventlog.Case{{
		Name: "only",
		Events: []eventlog.Event{
			{Activity: "A", Timestamp: time.Date(2017, 1, 2, 8, 0, 0, 0, time.UTC)},
		},
	}})
	hles, paths, err := Mine(context.Background(), log, testConfig())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if len(hles) != 0 || len(paths) != 0 {
		t.Errorf("got %d events and %d paths from a step-free log", len(hles), len(paths))
	}
}

func TestMineRequiresResourcesWhenEnabled(t *testing.T) {
	log := eventlog.New([]eventlog.Case{{
		Name: "c",
		Events: []eventlog.Event{
			{Activity: "A", Timestamp: time.Date(2017, 1, 2, 8, 0, 0, 0, time.UTC)},
			{Activity: "B", Timestamp: time.Date(2017, 1, 2, 9, 0, 0, 0, time.UTC)},
		},
	}})
	cfg := testConfig()
	cfg.ResourceInfo = true

	_, _, err := Mine(context.Background(), log, cfg)
	if !errors.IsCode(err, errors.CodeMissingAttribute) {
		t.Errorf("got %v, want missing-attribute error", err)
	}
}

func TestNewMinerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.Code
	}{
		{"percentile too low", func(c *Config) { c.Percentile = 0.4 }, errors.CodeInvalidPercentile},
		{"percentile at bound", func(c *Config) { c.Percentile = 1.0 }, errors.CodeInvalidPercentile},
		{"no features", func(c *Config) { c.Features = nil }, errors.CodeEmptyFeatureList},
		{"bad seg method", func(c *Config) { c.SegMethod = "btw" }, errors.CodeInvalidSegMethod},
		{"co thresh out of range", func(c *Config) { c.CoThresh = 1.5 }, errors.CodeInvalidThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewMiner(cfg)
			if !errors.IsCode(err, tt.code) {
				t.Errorf("got %v, want code %s", err, tt.code)
			}
		})
	}
}
