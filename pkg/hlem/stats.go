package hlem

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// PathStats is one row of the aggregated result table: a retained path with
// its participating and non-participating case sets. The two sets partition
// the case universe.
type PathStats struct {
	Path             *Path
	Frequency        int
	Participating    *roaring.Bitmap
	NonParticipating *roaring.Bitmap
}

// Table is the aggregated mining result, annotated with the thresholds the
// run used so consumers can detect parameter drift between runs.
type Table struct {
	Percentile float64
	CoThresh   float64
	Rows       []PathStats
}

// GatherStatistics produces one row per retained path. Participation is not
// taken from the builder's cached sets alone: every case is revalidated
// against the HLE population (each path element must be backed by an HLE
// the case contributed to) and against the control-flow dictionary (every
// segment element must occur as a directly-follows pair in the case's
// activity sequence). The non-participating set is the complement within
// the case universe derived from the control-flow dictionary.
func GatherStatistics(hles map[EventID]HighLevelEvent, paths map[PathKey]*Path, controlFlow map[int][]string, p, coThresh float64) Table {
	universe := roaring.New()
	for caseID := range controlFlow {
		universe.Add(uint32(caseID))
	}

	// Union of case sets per (feature, entity) across frames: the pool of
	// cases that ever backed an element.
	pools := make(map[PathElement]*roaring.Bitmap)
	for id, hle := range hles {
		el := PathElement{Feature: id.Feature, Entity: id.Entity}
		if pools[el] == nil {
			pools[el] = roaring.New()
		}
		pools[el].Or(hle.Cases)
	}

	pairs := directlyFollowsPairs(controlFlow)

	keys := make([]PathKey, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([]PathStats, 0, len(keys))
	for _, k := range keys {
		path := paths[k]

		part := path.Cases.Clone()
		for _, el := range path.Elements {
			pool := pools[el]
			if pool == nil {
				part = roaring.New()
				break
			}
			part.And(pool)
		}
		part = validateControlFlow(part, path, controlFlow, pairs)
		part.And(universe)

		rows = append(rows, PathStats{
			Path:             path,
			Frequency:        int(part.GetCardinality()),
			Participating:    part,
			NonParticipating: roaring.AndNot(universe, part),
		})
	}

	return Table{Percentile: p, CoThresh: coThresh, Rows: rows}
}

// directlyFollowsPairs indexes each case's adjacent activity pairs.
func directlyFollowsPairs(controlFlow map[int][]string) map[int]map[[2]string]struct{} {
	out := make(map[int]map[[2]string]struct{}, len(controlFlow))
	for caseID, seq := range controlFlow {
		set := make(map[[2]string]struct{}, len(seq))
		for i := 1; i < len(seq); i++ {
			set[[2]string{seq[i-1], seq[i]}] = struct{}{}
		}
		out[caseID] = set
	}
	return out
}

// validateControlFlow keeps only cases whose activity sequence actually
// exhibits the path: segments as directly-follows pairs, activities by
// membership. Resource entities carry no control-flow footprint and pass.
func validateControlFlow(part *roaring.Bitmap, path *Path, controlFlow map[int][]string, pairs map[int]map[[2]string]struct{}) *roaring.Bitmap {
	valid := roaring.New()
	it := part.Iterator()
	for it.HasNext() {
		caseID := it.Next()
		if caseExhibits(int(caseID), path, controlFlow, pairs) {
			valid.Add(caseID)
		}
	}
	return valid
}

func caseExhibits(caseID int, path *Path, controlFlow map[int][]string, pairs map[int]map[[2]string]struct{}) bool {
	seq, ok := controlFlow[caseID]
	if !ok {
		return false
	}
	for _, el := range path.Elements {
		switch el.Entity.Kind {
		case KindSegment:
			if _, ok := pairs[caseID][[2]string{el.Entity.A, el.Entity.B}]; !ok {
				return false
			}
		case KindActivity:
			found := false
			for _, a := range seq {
				if a == el.Entity.A {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case KindResource:
			// No control-flow footprint; participation stands as mined.
		}
	}
	return true
}
