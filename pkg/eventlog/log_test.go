package eventlog

import (
	"testing"
	"time"

	"github.com/pippi2802/hlem-framework/pkg/errors"
)

func ts(h int) time.Time {
	return time.Date(2017, 3, 1, h, 0, 0, 0, time.UTC)
}

func sampleLog() *Log {
	return New([]Case{
		{Name: "c1", Events: []Event{
			{Activity: "A", Timestamp: ts(8), Resource: "r1"},
			{Activity: "B", Timestamp: ts(9), Resource: "r2"},
			{Activity: "End", Timestamp: ts(10), Resource: "r1"},
		}},
		{Name: "c2", Events: []Event{
			{Activity: "A", Timestamp: ts(8), Resource: "SYSTEM"},
			{Activity: "C", Timestamp: ts(12), Resource: "r3"},
		}},
	})
}

func TestNewAssignsSequentialIDs(t *testing.T) {
	l := sampleLog()
	for i, c := range l.Cases() {
		if c.ID != i {
			t.Errorf("case %q has ID %d, want %d", c.Name, c.ID, i)
		}
	}
}

func TestLogCounts(t *testing.T) {
	l := sampleLog()
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
	if l.NumEvents() != 5 {
		t.Errorf("NumEvents = %d, want 5", l.NumEvents())
	}
}

func TestActivitiesAndResources(t *testing.T) {
	l := sampleLog()
	acts := l.Activities()
	for _, a := range []string{"A", "B", "C", "End"} {
		if _, ok := acts[a]; !ok {
			t.Errorf("activity %q missing", a)
		}
	}

	res := l.Resources("SYSTEM")
	if _, ok := res["SYSTEM"]; ok {
		t.Error("excluded resource still present")
	}
	if len(res) != 3 {
		t.Errorf("got %d resources, want 3", len(res))
	}
}

func TestControlFlow(t *testing.T) {
	l := sampleLog()
	cf := l.ControlFlow()
	want := []string{"A", "B", "End"}
	got := cf[0]
	if len(got) != len(want) {
		t.Fatalf("case 0 sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("case 0 sequence = %v, want %v", got, want)
			break
		}
	}
}

func TestSortEventsIsStable(t *testing.T) {
	l := New([]Case{{Name: "c", Events: []Event{
		{Activity: "late", Timestamp: ts(10)},
		{Activity: "first-tie", Timestamp: ts(8)},
		{Activity: "second-tie", Timestamp: ts(8)},
	}}})
	l.SortEvents()
	evs := l.Cases()[0].Events
	if evs[0].Activity != "first-tie" || evs[1].Activity != "second-tie" || evs[2].Activity != "late" {
		t.Errorf("got order %s, %s, %s", evs[0].Activity, evs[1].Activity, evs[2].Activity)
	}
}

func TestFilterReassignsIDs(t *testing.T) {
	l := sampleLog()
	kept := l.Filter(func(c *Case) bool { return c.Name == "c2" })
	if kept.Len() != 1 {
		t.Fatalf("Len = %d, want 1", kept.Len())
	}
	if kept.Cases()[0].ID != 0 {
		t.Errorf("surviving case has ID %d, want 0", kept.Cases()[0].ID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name            string
		events          []Event
		requireResource bool
		wantCode        errors.Code
	}{
		{
			name: "valid",
			events: []Event{
				{Activity: "A", Timestamp: ts(8), Resource: "r"},
				{Activity: "B", Timestamp: ts(9), Resource: "r"},
			},
			requireResource: true,
		},
		{
			name: "missing timestamp",
			events: []Event{
				{Activity: "A", Resource: "r"},
			},
			wantCode: errors.CodeMissingAttribute,
		},
		{
			name: "decreasing timestamps",
			events: []Event{
				{Activity: "A", Timestamp: ts(9)},
				{Activity: "B", Timestamp: ts(8)},
			},
			wantCode: errors.CodeParseFailed,
		},
		{
			name: "missing resource when required",
			events: []Event{
				{Activity: "A", Timestamp: ts(8)},
			},
			requireResource: true,
			wantCode:        errors.CodeMissingAttribute,
		},
		{
			name: "missing resource tolerated otherwise",
			events: []Event{
				{Activity: "A", Timestamp: ts(8)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New([]Case{{Name: "c", Events: tt.events}})
			err := l.Validate(tt.requireResource)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if !errors.IsCode(err, tt.wantCode) {
				t.Errorf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestPartitionByActivity(t *testing.T) {
	l := sampleLog()
	with, without := l.PartitionByActivity("End")
	if !with.Contains(0) || with.GetCardinality() != 1 {
		t.Errorf("with = %v, want {0}", with.ToArray())
	}
	if !without.Contains(1) || without.GetCardinality() != 1 {
		t.Errorf("without = %v, want {1}", without.ToArray())
	}
}

func TestPartitionByThroughput(t *testing.T) {
	l := sampleLog() // c1 runs 2h, c2 runs 4h
	classes := l.PartitionByThroughput(3*time.Hour, 10*time.Hour)
	if !classes[0].Contains(0) {
		t.Error("2h case belongs in the fast class")
	}
	if !classes[1].Contains(1) {
		t.Error("4h case belongs in the middle class")
	}
	total := classes[0].GetCardinality() + classes[1].GetCardinality() + classes[2].GetCardinality()
	if total != 2 {
		t.Errorf("classes cover %d cases, want 2", total)
	}
}

func TestUniverse(t *testing.T) {
	u := sampleLog().Universe()
	if u.GetCardinality() != 2 || !u.Contains(0) || !u.Contains(1) {
		t.Errorf("universe = %v, want {0, 1}", u.ToArray())
	}
}
