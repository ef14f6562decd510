package eventlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pippi2802/hlem-framework/pkg/parser"
)

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0">
<trace>
<string key="concept:name" value="case_1"/>
<event>
<string key="concept:name" value="A_Submitted"/>
<string key="org:resource" value="User_5"/>
<string key="org:role" value="Clerk"/>
<string key="lifecycle:transition" value="complete"/>
<date key="time:timestamp" value="2017-01-02T09:00:00.000+00:00"/>
</event>
<event>
<string key="concept:name" value="A_Accepted"/>
<string key="org:resource" value="User_7"/>
<date key="time:timestamp" value="2017-01-02T10:30:00.000+00:00"/>
</event>
</trace>
<trace>
<string key="concept:name" value="case_2"/>
<event>
<string key="concept:name" value="A_Submitted"/>
<string key="org:resource" value="User_5"/>
<date key="time:timestamp" value="2017-01-03T09:00:00.000+00:00"/>
</event>
</trace>
</log>
`

func TestLoadXES(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xes")
	if err := os.WriteFile(path, []byte(sampleXES), 0644); err != nil {
		t.Fatal(err)
	}

	log, err := Load(context.Background(), path, parser.Config{BufferSize: 4096})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if log.Len() != 2 {
		t.Fatalf("got %d cases, want 2", log.Len())
	}

	c1 := log.Cases()[0]
	if c1.Name != "case_1" {
		t.Errorf("case name = %q", c1.Name)
	}
	if len(c1.Events) != 2 {
		t.Fatalf("case_1 has %d events, want 2", len(c1.Events))
	}

	ev := c1.Events[0]
	if ev.Activity != "A_Submitted" {
		t.Errorf("activity = %q", ev.Activity)
	}
	if ev.Resource != "User_5" {
		t.Errorf("resource = %q", ev.Resource)
	}
	if ev.Role != "Clerk" {
		t.Errorf("role = %q", ev.Role)
	}
	if ev.Lifecycle != "complete" {
		t.Errorf("lifecycle = %q", ev.Lifecycle)
	}
	want := time.Date(2017, 1, 2, 9, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, want)
	}

	if err := log.Validate(true); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.xes"), parser.Config{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	if err := os.WriteFile(path, []byte("case,activity\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path, parser.Config{}); err == nil {
		t.Fatal("expected unsupported-format error")
	}
}
