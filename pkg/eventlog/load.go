package eventlog

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pippi2802/hlem-framework/internal/model"
	"github.com/pippi2802/hlem-framework/pkg/parser"
)

// Load reads an event log file into memory. The parser streams events on a
// channel while the collector groups them into cases; errgroup cancels both
// sides on the first error.
func Load(ctx context.Context, path string, cfg parser.Config) (*Log, error) {
	format := parser.DetectFormat(path)
	p, err := parser.NewParser(format, cfg)
	if err != nil {
		return nil, fmt.Errorf("eventlog: %q: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %q: %w", path, err)
	}
	defer f.Close()

	events := make(chan *model.Event, 4096)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return p.Parse(ctx, f, events)
	})

	var log *Log
	g.Go(func() error {
		log = Collect(ctx, events)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.SortEvents()
	return log, nil
}

// Collect drains a parsed event stream into a Log, grouping events by case
// in first-seen order.
func Collect(ctx context.Context, events <-chan *model.Event) *Log {
	index := make(map[string]int)
	var cases []Case

	for {
		select {
		case <-ctx.Done():
			return New(cases)
		case ev, ok := <-events:
			if !ok {
				return New(cases)
			}
			caseName := string(ev.CaseID)
			idx, seen := index[caseName]
			if !seen {
				idx = len(cases)
				index[caseName] = idx
				cases = append(cases, Case{Name: caseName})
			}
			cases[idx].Events = append(cases[idx].Events, convert(ev))
		}
	}
}

// convert copies a pooled parser event into an owned eventlog event.
func convert(ev *model.Event) Event {
	out := Event{
		Activity:  string(ev.Activity),
		Resource:  string(ev.Resource),
		Lifecycle: string(ev.Lifecycle),
	}
	if ev.Timestamp != 0 {
		out.Timestamp = time.Unix(0, ev.Timestamp).UTC()
	}
	for i := range ev.Attributes {
		if string(ev.Attributes[i].Key) == "org:role" {
			out.Role = string(ev.Attributes[i].Value)
		}
	}
	return out
}
