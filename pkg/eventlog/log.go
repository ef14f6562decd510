// Package eventlog provides the in-memory event log abstraction consumed by
// the mining pipeline: ordered cases of ordered events, plus the renaming,
// filtering and partitioning helpers that dataset-specific preprocessing
// needs. One implementation replaces the per-dataset preprocessing forks;
// datasets differ only in the Profile they supply.
package eventlog

import (
	"sort"
	"time"

	"github.com/pippi2802/hlem-framework/pkg/errors"
)

// Event is a single low-level event inside a case.
type Event struct {
	Activity  string
	Timestamp time.Time
	Resource  string
	Lifecycle string
	Role      string
}

// Case is an ordered sequence of events belonging to one process instance.
// ID is the integer index of the case within the log; Name carries the
// original trace identifier.
type Case struct {
	ID     int
	Name   string
	Events []Event
}

// Start returns the timestamp of the first event.
func (c *Case) Start() time.Time {
	return c.Events[0].Timestamp
}

// End returns the timestamp of the last event.
func (c *Case) End() time.Time {
	return c.Events[len(c.Events)-1].Timestamp
}

// Duration returns the case throughput time.
func (c *Case) Duration() time.Duration {
	return c.End().Sub(c.Start())
}

// Log is an ordered collection of cases. Cases are immutable after load
// except for the explicit Rename operations below.
type Log struct {
	cases []Case
}

// New builds a Log from pre-assembled cases, reassigning sequential IDs.
func New(cases []Case) *Log {
	for i := range cases {
		cases[i].ID = i
	}
	return &Log{cases: cases}
}

// Cases returns the ordered case slice.
func (l *Log) Cases() []Case {
	return l.cases
}

// Len returns the number of cases.
func (l *Log) Len() int {
	return len(l.cases)
}

// NumEvents returns the total number of events across all cases.
func (l *Log) NumEvents() int {
	n := 0
	for i := range l.cases {
		n += len(l.cases[i].Events)
	}
	return n
}

// Activities returns the set of activity names in the log.
func (l *Log) Activities() map[string]struct{} {
	out := make(map[string]struct{})
	for i := range l.cases {
		for j := range l.cases[i].Events {
			out[l.cases[i].Events[j].Activity] = struct{}{}
		}
	}
	return out
}

// Resources returns the set of resources in the log, excluding the given
// names (e.g. system accounts like "User_1" or "SYSTEM").
func (l *Log) Resources(exclude ...string) map[string]struct{} {
	skip := make(map[string]struct{}, len(exclude))
	for _, r := range exclude {
		skip[r] = struct{}{}
	}
	out := make(map[string]struct{})
	for i := range l.cases {
		for j := range l.cases[i].Events {
			res := l.cases[i].Events[j].Resource
			if res == "" {
				continue
			}
			if _, excluded := skip[res]; !excluded {
				out[res] = struct{}{}
			}
		}
	}
	return out
}

// ControlFlow returns the control-flow dictionary: case ID to its ordered
// activity-name sequence.
func (l *Log) ControlFlow() map[int][]string {
	out := make(map[int][]string, len(l.cases))
	for i := range l.cases {
		seq := make([]string, len(l.cases[i].Events))
		for j := range l.cases[i].Events {
			seq[j] = l.cases[i].Events[j].Activity
		}
		out[l.cases[i].ID] = seq
	}
	return out
}

// Rename applies a rename rule to every event in place.
func (l *Log) Rename(rule RenameRule) {
	for i := range l.cases {
		for j := range l.cases[i].Events {
			rule(&l.cases[i].Events[j])
		}
	}
}

// Filter returns a new Log containing only cases the predicate keeps.
// Case IDs are reassigned to stay dense.
func (l *Log) Filter(keep func(c *Case) bool) *Log {
	var kept []Case
	for i := range l.cases {
		if keep(&l.cases[i]) {
			kept = append(kept, l.cases[i])
		}
	}
	return New(kept)
}

// SortEvents orders each case's events by timestamp (stable, preserving the
// original order of ties) so the non-decreasing invariant holds.
func (l *Log) SortEvents() {
	for i := range l.cases {
		evs := l.cases[i].Events
		sort.SliceStable(evs, func(a, b int) bool {
			return evs[a].Timestamp.Before(evs[b].Timestamp)
		})
	}
}

// Validate checks the invariants the miner depends on: every event carries a
// timestamp, timestamps are non-decreasing within a case, and, when
// requireResource is set, every event carries a resource. Violations are
// reported with case and event context.
func (l *Log) Validate(requireResource bool) error {
	for i := range l.cases {
		c := &l.cases[i]
		if len(c.Events) == 0 {
			continue
		}
		prev := time.Time{}
		for j := range c.Events {
			ev := &c.Events[j]
			if ev.Timestamp.IsZero() {
				return errors.MissingAttribute("timestamp", c.Name, j)
			}
			if ev.Timestamp.Before(prev) {
				return errors.New(errors.CodeParseFailed, "timestamps decrease within case").
					WithContext("case", c.Name).
					WithContext("event", j)
			}
			if requireResource && ev.Resource == "" {
				return errors.MissingAttribute("resource", c.Name, j)
			}
			prev = ev.Timestamp
		}
	}
	return nil
}
