package hlem

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// EntityKind distinguishes what a feature measurement describes.
type EntityKind uint8

const (
	// KindActivity is a single activity node.
	KindActivity EntityKind = iota
	// KindResource is a single resource node.
	KindResource
	// KindSegment is an ordered activity pair forming a directly-follows
	// segment.
	KindSegment
)

// String returns the kind name.
func (k EntityKind) String() string {
	switch k {
	case KindActivity:
		return "activity"
	case KindResource:
		return "resource"
	case KindSegment:
		return "segment"
	default:
		return "unknown"
	}
}

// Entity is the subject of a feature measurement: an activity, a resource,
// or a directly-follows segment (A, B). It is a comparable value type and is
// used as a map key throughout the pipeline.
type Entity struct {
	Kind EntityKind
	A    string
	B    string
}

// ActivityEntity returns the node entity for activity a.
func ActivityEntity(a string) Entity {
	return Entity{Kind: KindActivity, A: a}
}

// ResourceEntity returns the node entity for resource r.
func ResourceEntity(r string) Entity {
	return Entity{Kind: KindResource, A: r}
}

// SegmentEntity returns the edge entity for the directly-follows pair (a, b).
func SegmentEntity(a, b string) Entity {
	return Entity{Kind: KindSegment, A: a, B: b}
}

// Source is the connection point where a path may enter this entity.
func (e Entity) Source() string {
	return e.A
}

// Target is the connection point where a path may leave this entity.
// For node entities source and target coincide.
func (e Entity) Target() string {
	if e.Kind == KindSegment {
		return e.B
	}
	return e.A
}

// String renders the entity the way result tables print it.
func (e Entity) String() string {
	if e.Kind == KindSegment {
		return fmt.Sprintf("(%s, %s)", e.A, e.B)
	}
	return e.A
}

// less is the canonical entity ordering used for deterministic traversal.
func (e Entity) less(o Entity) bool {
	if e.Kind != o.Kind {
		return e.Kind < o.Kind
	}
	if e.A != o.A {
		return e.A < o.A
	}
	return e.B < o.B
}

// EventID identifies a high-level event: one classified feature value for
// one entity in one frame. It replaces the original's loosely typed
// composite dictionary key with a comparable value type.
type EventID struct {
	Frame   int
	Entity  Entity
	Feature Feature
	Class   Traffic

	// Group is the resource-type group when type-based partitioning is on,
	// empty otherwise.
	Group string
}

// String renders the identifier for logs and reports.
func (id EventID) String() string {
	s := fmt.Sprintf("%s-%s@%d:%s", id.Feature, id.Entity, id.Frame, id.Class)
	if id.Group != "" {
		s += "/" + id.Group
	}
	return s
}

// less is the canonical HLE ordering: frame first, then entity, feature,
// class, group. Path construction traverses HLEs in this order.
func (id EventID) less(o EventID) bool {
	if id.Frame != o.Frame {
		return id.Frame < o.Frame
	}
	if id.Entity != o.Entity {
		return id.Entity.less(o.Entity)
	}
	if id.Feature != o.Feature {
		return id.Feature < o.Feature
	}
	if id.Class != o.Class {
		return id.Class < o.Class
	}
	return id.Group < o.Group
}

// HighLevelEvent is a discretized High/Low traffic observation. Immutable
// once emitted by the classifier.
type HighLevelEvent struct {
	ID    EventID
	Value float64

	// Cases holds the identifiers of the cases contributing to the
	// measurement in this frame.
	Cases *roaring.Bitmap
}
