package checkpoint

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
)

func sampleTable() hlem.Table {
	return hlem.Table{
		Percentile: 0.9,
		CoThresh:   0.5,
		Rows: []hlem.PathStats{
			{
				Path: &hlem.Path{
					Elements: []hlem.PathElement{
						{Feature: hlem.FeatureExit, Entity: hlem.SegmentEntity("A", "B")},
					},
					Cases: roaring.BitmapOf(1, 2, 3),
				},
				Frequency:        3,
				Participating:    roaring.BitmapOf(1, 2, 3),
				NonParticipating: roaring.BitmapOf(4, 5),
			},
		},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("/data/log.xes", "abc123", 7, sampleTable())
	if run.ID == "" {
		t.Error("run has no ID")
	}
	if run.LogPath != "/data/log.xes" || run.ConfigHash != "abc123" || run.HLECount != 7 {
		t.Errorf("run metadata = %+v", run)
	}
	if len(run.Paths) != 1 {
		t.Fatalf("got %d path records, want 1", len(run.Paths))
	}
	p := run.Paths[0]
	if p.Path != "(exit, (A, B))" || p.Length != 1 || p.Frequency != 3 {
		t.Errorf("record = %+v", p)
	}
	if len(p.Participating) != 3 || len(p.NonParticipating) != 2 {
		t.Errorf("case sets = %v / %v", p.Participating, p.NonParticipating)
	}
}

func TestKeyChangesWithConfig(t *testing.T) {
	a := hlem.DefaultConfig()
	b := hlem.DefaultConfig()
	b.Percentile = 0.8

	k1 := Key("/data/log.xes", a)
	k2 := Key("/data/log.xes", b)
	k3 := Key("/data/other.xes", a)
	if k1 == k2 {
		t.Error("config change did not change the key")
	}
	if k1 == k3 {
		t.Error("log path change did not change the key")
	}
	if k1 != Key("/data/log.xes", a) {
		t.Error("key is not deterministic")
	}
}

func TestLocalBackendRoundtrip(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	run := NewRun("/data/log.xes", "deadbeef", 2, sampleTable())
	if err := b.Save(ctx, run); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := b.Load(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil for saved run")
	}
	if got.ID != run.ID || got.HLECount != 2 || len(got.Paths) != 1 {
		t.Errorf("got %+v", got)
	}

	if err := b.Delete(ctx, "deadbeef"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := b.Load(ctx, "deadbeef"); err != nil || got != nil {
		t.Errorf("after delete: (%v, %v), want (nil, nil)", got, err)
	}
}

func TestLocalBackendMissingKey(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", got, err)
	}
	if err := b.Delete(context.Background(), "nope"); err != nil {
		t.Errorf("deleting an absent key must be a no-op, got %v", err)
	}
}
