package hlem

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pippi2802/hlem-framework/pkg/eventlog"
)

// Miner runs the three-stage mining pipeline: windowed feature extraction,
// percentile classification, and overlap path construction. Extraction and
// classification shard by feature across goroutines; shards share only the
// read-only indexes and configuration, and results merge in feature order,
// so the output is identical to a sequential run.
type Miner struct {
	cfg    Config
	tracer trace.Tracer

	// OnStage, when set, is called as each pipeline stage begins.
	OnStage func(stage string)
}

// NewMiner validates the configuration and returns a ready miner.
// Configuration errors fail here, before any computation starts.
func NewMiner(cfg Config) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Miner{
		cfg:    cfg,
		tracer: otel.Tracer("hlem"),
	}, nil
}

// Mine is the convenience entry point covering the full pipeline with a
// fresh miner.
func Mine(ctx context.Context, log *eventlog.Log, cfg Config) (map[EventID]HighLevelEvent, map[PathKey]*Path, error) {
	m, err := NewMiner(cfg)
	if err != nil {
		return nil, nil, err
	}
	return m.Mine(ctx, log)
}

// Mine extracts high-level events and activity paths from the log. An empty
// result is not an error: a log where nothing survives classification or
// filtering yields empty maps so reporting can state that no paths were
// found.
func (m *Miner) Mine(ctx context.Context, log *eventlog.Log) (map[EventID]HighLevelEvent, map[PathKey]*Path, error) {
	ctx, span := m.tracer.Start(ctx, "hlem.mine", trace.WithAttributes(
		attribute.Int("cases", log.Len()),
		attribute.Int("events", log.NumEvents()),
		attribute.String("granularity", m.cfg.Granularity.String()),
	))
	defer span.End()

	if err := log.Validate(m.cfg.ResourceInfo); err != nil {
		return nil, nil, err
	}

	hles, err := m.mineEvents(ctx, log)
	if err != nil {
		return nil, nil, err
	}

	m.stage("paths")
	_, pathSpan := m.tracer.Start(ctx, "hlem.paths")
	paths := filterPaths(buildPaths(hles, &m.cfg), &m.cfg)
	pathSpan.SetAttributes(attribute.Int("paths", len(paths)))
	pathSpan.End()

	span.SetAttributes(
		attribute.Int("hles", len(hles)),
		attribute.Int("paths", len(paths)),
	)
	return hles, paths, nil
}

// mineEvents runs extraction and classification, sharded by feature.
func (m *Miner) mineEvents(ctx context.Context, log *eventlog.Log) (map[EventID]HighLevelEvent, error) {
	m.stage("extract")
	ctx, span := m.tracer.Start(ctx, "hlem.extract")
	defer span.End()

	ex := newExtractor(log, &m.cfg)

	perFeature := make([]map[EventID]HighLevelEvent, len(m.cfg.Features))
	g, _ := errgroup.WithContext(ctx)
	for i, f := range m.cfg.Features {
		g.Go(func() error {
			series := ex.extractFeature(f)
			perFeature[i] = classifyAll(series, &m.cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.stage("classify")
	hles := make(map[EventID]HighLevelEvent)
	for _, part := range perFeature {
		for id, hle := range part {
			hles[id] = hle
		}
	}
	span.SetAttributes(attribute.Int("hles", len(hles)))
	return hles, nil
}

func (m *Miner) stage(name string) {
	if m.OnStage != nil {
		m.OnStage(name)
	}
}
