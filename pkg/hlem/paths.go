package hlem

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// PathElement is one link of a high-level activity path: a feature measure
// on an entity. Frames are deliberately absent — path instances discovered
// in different frames collapse onto the same element sequence.
type PathElement struct {
	Feature Feature
	Entity  Entity
}

// String renders the element the way result tables print it.
func (e PathElement) String() string {
	return "(" + e.Feature.String() + ", " + e.Entity.String() + ")"
}

// PathKey is the canonical string form of an element sequence, used as the
// map key for discovered paths.
type PathKey string

// keyOf builds the canonical key of an element sequence.
func keyOf(elems []PathElement) PathKey {
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return PathKey(strings.Join(parts, " -> "))
}

// Path is a chain of overlap-connected high-level events. Cases is the set
// of case identifiers participating in every link of the chain (united
// across all frame instances of the same element sequence). Paths are never
// mutated after construction — only annotated with statistics downstream.
type Path struct {
	Elements []PathElement
	Cases    *roaring.Bitmap
}

// Key returns the canonical path key.
func (p *Path) Key() PathKey {
	return keyOf(p.Elements)
}

// Frequency is the participating-case count.
func (p *Path) Frequency() int {
	return int(p.Cases.GetCardinality())
}

// Len returns the number of elements.
func (p *Path) Len() int {
	return len(p.Elements)
}

// overlapRatio is the largest directional intersection ratio between two
// case sets: the fraction of one set also present in the other. Empty sets
// never overlap.
func overlapRatio(a, b *roaring.Bitmap) float64 {
	ca, cb := a.GetCardinality(), b.GetCardinality()
	if ca == 0 || cb == 0 {
		return 0
	}
	inter := float64(a.AndCardinality(b))
	ra := inter / float64(ca)
	rb := inter / float64(cb)
	if ra > rb {
		return ra
	}
	return rb
}

// pathBuilder chains high-level events into candidate paths. Construction
// is order-independent: nodes are held in the canonical EventID order and
// all traversal follows sorted adjacency lists, so the discovered path set
// is a pure function of the HLE population and the thresholds.
type pathBuilder struct {
	cfg   *Config
	nodes []HighLevelEvent
	adj   [][]int

	visited []bool
	onPath  []bool
	paths   map[PathKey]*Path
}

// buildPaths discovers all maximal overlap-connected chains in the HLE
// population. Two events link when their entities are directly-follows
// adjacent (the target of one equals the source of the next), their frames
// coincide or directly follow, and their case participation overlaps at
// least CoThresh in one direction. CoPathThresh governs every extension of
// an already multi-step path, diluting control as chains grow.
func buildPaths(hles map[EventID]HighLevelEvent, cfg *Config) map[PathKey]*Path {
	b := &pathBuilder{
		cfg:   cfg,
		nodes: make([]HighLevelEvent, 0, len(hles)),
		paths: make(map[PathKey]*Path),
	}
	for _, h := range hles {
		b.nodes = append(b.nodes, h)
	}
	sort.Slice(b.nodes, func(i, j int) bool {
		return b.nodes[i].ID.less(b.nodes[j].ID)
	})

	b.link()
	b.visited = make([]bool, len(b.nodes))
	b.onPath = make([]bool, len(b.nodes))

	// Chains start at events no other event links into. Cycle components
	// (possible among same-frame events) have no such entry point, so a
	// second pass walks whatever the first one never reached.
	hasPred := make([]bool, len(b.nodes))
	for _, next := range b.adj {
		for _, j := range next {
			hasPred[j] = true
		}
	}
	for i := range b.nodes {
		if !hasPred[i] {
			b.extend([]int{i}, b.nodes[i].Cases.Clone())
		}
	}
	for i := range b.nodes {
		if !b.visited[i] {
			b.extend([]int{i}, b.nodes[i].Cases.Clone())
		}
	}

	return b.paths
}

// link computes the sorted adjacency lists under the pairwise threshold.
func (b *pathBuilder) link() {
	byFrame := make(map[int][]int)
	for i := range b.nodes {
		f := b.nodes[i].ID.Frame
		byFrame[f] = append(byFrame[f], i)
	}

	b.adj = make([][]int, len(b.nodes))
	for i := range b.nodes {
		src := &b.nodes[i]
		for _, f := range [2]int{src.ID.Frame, src.ID.Frame + 1} {
			for _, j := range byFrame[f] {
				if j == i {
					continue
				}
				dst := &b.nodes[j]
				if dst.ID.Frame < src.ID.Frame {
					continue
				}
				if src.ID.Entity.Target() != dst.ID.Entity.Source() {
					continue
				}
				if overlapRatio(src.Cases, dst.Cases) < b.cfg.CoThresh {
					continue
				}
				b.adj[i] = append(b.adj[i], j)
			}
		}
		sort.Ints(b.adj[i])
	}
}

// extend grows the chain ending at path[len-1] by every viable next event,
// recording the chain once no extension remains. cases is the running
// intersection of the member participation sets.
func (b *pathBuilder) extend(path []int, cases *roaring.Bitmap) {
	last := path[len(path)-1]
	b.visited[last] = true
	b.onPath[last] = true
	defer func() { b.onPath[last] = false }()

	extended := false
	if b.cfg.MaxPathLength == 0 || len(path) < b.cfg.MaxPathLength {
		for _, j := range b.adj[last] {
			if b.onPath[j] {
				continue
			}
			next := &b.nodes[j]
			if len(path) >= 2 && overlapRatio(cases, next.Cases) < b.cfg.CoPathThresh {
				continue
			}
			merged := roaring.And(cases, next.Cases)
			if merged.IsEmpty() {
				continue
			}
			extended = true
			b.extend(append(path, j), merged)
		}
	}

	if !extended {
		b.record(path, cases)
	}
}

// record merges a discovered chain instance into the path map, uniting case
// sets of instances sharing the same element sequence.
func (b *pathBuilder) record(path []int, cases *roaring.Bitmap) {
	elems := make([]PathElement, len(path))
	for i, idx := range path {
		elems[i] = PathElement{
			Feature: b.nodes[idx].ID.Feature,
			Entity:  b.nodes[idx].ID.Entity,
		}
	}
	key := keyOf(elems)
	if existing, ok := b.paths[key]; ok {
		existing.Cases.Or(cases)
		return
	}
	b.paths[key] = &Path{Elements: elems, Cases: cases.Clone()}
}

// filterPaths applies the two independent retention filters: the frequency
// floor, and — when enabled — maximality pruning. A path is redundant only
// if it is a strict contiguous subsequence of a retained path and adds no
// distinguishing cases; equal participation prefers the longer path.
func filterPaths(paths map[PathKey]*Path, cfg *Config) map[PathKey]*Path {
	var retained []*Path
	for _, p := range paths {
		if p.Frequency() >= cfg.MinPathFrequency {
			retained = append(retained, p)
		}
	}

	out := make(map[PathKey]*Path, len(retained))
	if !cfg.OnlyMaximalPaths {
		for _, p := range retained {
			out[p.Key()] = p
		}
		return out
	}

	for _, p := range retained {
		redundant := false
		for _, q := range retained {
			if p == q || len(p.Elements) >= len(q.Elements) {
				continue
			}
			if isContiguousSubsequence(p.Elements, q.Elements) &&
				p.Cases.AndCardinality(q.Cases) == p.Cases.GetCardinality() {
				redundant = true
				break
			}
		}
		if !redundant {
			out[p.Key()] = p
		}
	}
	return out
}

// isContiguousSubsequence reports whether sub occurs as a contiguous run
// inside seq.
func isContiguousSubsequence(sub, seq []PathElement) bool {
	if len(sub) > len(seq) {
		return false
	}
	for start := 0; start+len(sub) <= len(seq); start++ {
		match := true
		for i := range sub {
			if seq[start+i] != sub[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
