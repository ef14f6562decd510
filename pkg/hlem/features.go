package hlem

import (
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/stat"

	"github.com/pippi2802/hlem-framework/pkg/eventlog"
)

// step is one traversal of a directly-follows segment: an adjacent event
// pair within a case.
type step struct {
	caseID     uint32
	from, to   string
	startFrame int
	endFrame   int
	dur        time.Duration
	fromRes    string
	toRes      string
}

// evRef is one event occurrence, indexed for node-entity features.
type evRef struct {
	caseID   uint32
	frame    int
	activity string
	resource string
}

// seriesKey identifies one measurement group.
type seriesKey struct {
	entity  Entity
	feature Feature
	group   string
}

// series is a dense per-frame feature vector for one entity (and resource
// group when type-based partitioning is on). Frames where the entity is
// absent hold an explicit zero so the percentile computation sees them.
type series struct {
	key    seriesKey
	base   int
	values []float64
	cases  []*roaring.Bitmap
}

// add accumulates delta into the absolute frame and records the
// contributing case.
func (s *series) add(frame int, delta float64, caseID uint32) {
	i := frame - s.base
	s.values[i] += delta
	if s.cases[i] == nil {
		s.cases[i] = roaring.New()
	}
	s.cases[i].Add(caseID)
}

// casesAt returns the participating cases of a frame, never nil.
func (s *series) casesAt(frame int) *roaring.Bitmap {
	if b := s.cases[frame-s.base]; b != nil {
		return b
	}
	return roaring.New()
}

// extractor holds the per-run indexes shared by all feature shards. It is
// built once and read concurrently; shards never mutate it.
type extractor struct {
	cfg    *Config
	span   frameRange
	steps  []step
	events []evRef

	// durCut maps each segment to the duration above which a step counts as
	// delayed (the seg-percentile of that segment's step durations).
	durCut map[Entity]time.Duration
}

// newExtractor indexes the log for feature extraction: builds the step set
// from directly-follows pairs, the event index for node features, the global
// frame span and the per-segment duration cutoffs.
func newExtractor(log *eventlog.Log, cfg *Config) *extractor {
	ex := &extractor{
		cfg:    cfg,
		durCut: make(map[Entity]time.Duration),
	}

	first := true
	durations := make(map[Entity][]float64)

	for _, c := range log.Cases() {
		for i := range c.Events {
			ev := &c.Events[i]
			f := cfg.Granularity.FrameOf(ev.Timestamp)
			if first {
				ex.span = frameRange{min: f, max: f}
				first = false
			} else {
				if f < ex.span.min {
					ex.span.min = f
				}
				if f > ex.span.max {
					ex.span.max = f
				}
			}

			if cfg.activityAllowed(ev.Activity) {
				ex.events = append(ex.events, evRef{
					caseID:   uint32(c.ID),
					frame:    f,
					activity: ev.Activity,
					resource: ev.Resource,
				})
			}

			if i == 0 {
				continue
			}
			prev := &c.Events[i-1]
			if !cfg.activityAllowed(prev.Activity) || !cfg.activityAllowed(ev.Activity) {
				continue
			}
			st := step{
				caseID:     uint32(c.ID),
				from:       prev.Activity,
				to:         ev.Activity,
				startFrame: cfg.Granularity.FrameOf(prev.Timestamp),
				endFrame:   f,
				dur:        ev.Timestamp.Sub(prev.Timestamp),
				fromRes:    prev.Resource,
				toRes:      ev.Resource,
			}
			ex.steps = append(ex.steps, st)
			seg := SegmentEntity(st.from, st.to)
			durations[seg] = append(durations[seg], st.dur.Seconds())
		}
	}

	for seg, ds := range durations {
		sort.Float64s(ds)
		cut := stat.Quantile(cfg.SegPercentile, stat.Empirical, ds, nil)
		ex.durCut[seg] = time.Duration(cut * float64(time.Second))
	}

	return ex
}

// group returns the resource-type group a contribution belongs to.
func (ex *extractor) group(resource string) string {
	if ex.cfg.TypeBased {
		return resource
	}
	return ""
}

// shard collects the series of one feature extraction shard.
type shard struct {
	ex     *extractor
	series map[seriesKey]*series
}

func (ex *extractor) newShard() *shard {
	return &shard{ex: ex, series: make(map[seriesKey]*series)}
}

// at returns (allocating on first use) the dense series for a key.
func (sh *shard) at(entity Entity, feature Feature, group string) *series {
	k := seriesKey{entity: entity, feature: feature, group: group}
	s, ok := sh.series[k]
	if !ok {
		s = &series{
			key:    k,
			base:   sh.ex.span.min,
			values: make([]float64, sh.ex.span.width()),
			cases:  make([]*roaring.Bitmap, sh.ex.span.width()),
		}
		sh.series[k] = s
	}
	return s
}

// sorted returns the shard's series in canonical order, so downstream
// stages are independent of map iteration order.
func (sh *shard) sorted() []*series {
	out := make([]*series, 0, len(sh.series))
	for _, s := range sh.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.feature != b.feature {
			return a.feature < b.feature
		}
		if a.entity != b.entity {
			return a.entity.less(b.entity)
		}
		return a.group < b.group
	})
	return out
}

// extractFeature computes the dense series of one feature across all
// eligible entities. Safe to call concurrently for distinct features.
func (ex *extractor) extractFeature(f Feature) []*series {
	sh := ex.newShard()
	switch f {
	case FeatureEnter:
		for _, st := range ex.steps {
			sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes)).
				add(st.startFrame, 1, st.caseID)
		}

	case FeatureExit:
		for _, st := range ex.steps {
			sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes)).
				add(st.endFrame, 1, st.caseID)
		}

	case FeatureWorkload:
		// Segment workload counts steps pending or crossing a frame;
		// resource workload counts events a resource executed in a frame.
		for _, st := range ex.steps {
			s := sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes))
			for w := st.startFrame; w <= st.endFrame; w++ {
				s.add(w, 1, st.caseID)
			}
		}
		if ex.cfg.ResourceInfo {
			for _, ev := range ex.events {
				if ev.resource == "" || !ex.cfg.resourceAllowed(ev.resource) {
					continue
				}
				sh.at(ResourceEntity(ev.resource), f, ex.group(ev.resource)).
					add(ev.frame, 1, ev.caseID)
			}
		}

	case FeatureBatch:
		// Steps that accumulated across at least one frame boundary and
		// were released in this frame.
		for _, st := range ex.steps {
			if st.endFrame > st.startFrame {
				sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes)).
					add(st.endFrame, 1, st.caseID)
			}
		}

	case FeatureDelay:
		for _, st := range ex.steps {
			seg := SegmentEntity(st.from, st.to)
			if st.dur > ex.durCut[seg] {
				sh.at(seg, f, ex.group(st.fromRes)).add(st.endFrame, 1, st.caseID)
			}
		}

	case FeatureWaitingTime:
		for _, st := range ex.steps {
			sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes)).
				add(st.endFrame, st.dur.Seconds(), st.caseID)
		}

	case FeatureHandover:
		if !ex.cfg.ResourceInfo {
			break
		}
		for _, st := range ex.steps {
			if st.fromRes == "" || st.toRes == "" || st.fromRes == st.toRes {
				continue
			}
			sh.at(SegmentEntity(st.from, st.to), f, ex.group(st.fromRes)).
				add(st.endFrame, 1, st.caseID)
			if ex.cfg.resourceAllowed(st.fromRes) {
				sh.at(ResourceEntity(st.fromRes), f, ex.group(st.fromRes)).
					add(st.endFrame, 1, st.caseID)
			}
		}

	case FeatureExec:
		for _, ev := range ex.events {
			sh.at(ActivityEntity(ev.activity), f, ex.group(ev.resource)).
				add(ev.frame, 1, ev.caseID)
		}

	case FeatureTodo:
		// Outgoing steps of an activity that have started but not finished
		// by the end of the frame.
		for _, st := range ex.steps {
			s := sh.at(ActivityEntity(st.from), f, ex.group(st.fromRes))
			for w := st.startFrame; w < st.endFrame; w++ {
				s.add(w, 1, st.caseID)
			}
		}

	case FeatureProgress:
		// Steps arriving at an activity during the frame.
		for _, st := range ex.steps {
			sh.at(ActivityEntity(st.to), f, ex.group(st.toRes)).
				add(st.endFrame, 1, st.caseID)
		}
	}
	return sh.sorted()
}
