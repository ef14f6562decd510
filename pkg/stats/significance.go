// Package stats provides the chi-square significance testing used to
// correlate path participation with case outcomes.
package stats

import (
	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level for all tests.
const Alpha = 0.05

// ChiSquare runs a chi-square test of independence over an r x k
// contingency table of counts. It returns the p-value and whether the
// association is significant at Alpha.
//
// Degenerate tables — any all-zero row or column margin — cannot be tested;
// they report (1, false) instead of failing, so a run never crashes on an
// empty partition.
func ChiSquare(table [][]uint64) (pValue float64, significant bool) {
	rows := len(table)
	if rows < 2 {
		return 1, false
	}
	cols := len(table[0])
	if cols < 2 {
		return 1, false
	}

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	var total float64
	for i := range table {
		for j, v := range table[i] {
			rowSums[i] += float64(v)
			colSums[j] += float64(v)
			total += float64(v)
		}
	}
	if total == 0 {
		return 1, false
	}
	for _, s := range rowSums {
		if s == 0 {
			return 1, false
		}
	}
	for _, s := range colSums {
		if s == 0 {
			return 1, false
		}
	}

	var x2 float64
	for i := range table {
		for j, v := range table[i] {
			expected := rowSums[i] * colSums[j] / total
			d := float64(v) - expected
			x2 += d * d / expected
		}
	}

	df := float64((rows - 1) * (cols - 1))
	p := distuv.ChiSquared{K: df}.Survival(x2)
	return p, p <= Alpha
}

// Significance tests independence between a participation partition
// (participating / non-participating) and a k-ary outcome partition
// (e.g. success vs. failure, or throughput buckets). The contingency table
// has shape 2 x k; cell (i, j) counts the cases in both partition cells.
func Significance(participation [2]*roaring.Bitmap, outcome []*roaring.Bitmap) (pValue float64, significant bool) {
	if len(outcome) < 2 {
		return 1, false
	}
	table := make([][]uint64, 2)
	for i, part := range participation {
		table[i] = make([]uint64, len(outcome))
		for j, out := range outcome {
			if part == nil || out == nil {
				continue
			}
			table[i][j] = part.AndCardinality(out)
		}
	}
	return ChiSquare(table)
}
