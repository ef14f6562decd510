package stats

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func TestChiSquareIndependentTable(t *testing.T) {
	// Perfectly proportional counts carry zero association.
	p, significant := ChiSquare([][]uint64{{10, 10}, {10, 10}})
	if significant {
		t.Error("uniform table reported significant")
	}
	if math.Abs(p-1.0) > 1e-9 {
		t.Errorf("p = %v, want 1.0", p)
	}
}

func TestChiSquareStrongAssociation(t *testing.T) {
	p, significant := ChiSquare([][]uint64{{50, 0}, {0, 50}})
	if !significant {
		t.Error("perfect association reported not significant")
	}
	if p > 1e-20 {
		t.Errorf("p = %v, want essentially zero", p)
	}
}

func TestChiSquareKnownValue(t *testing.T) {
	// x2 = 100*(20*25-30*25)^2 / (50*50*45*55) ≈ 1.0101 with df=1,
	// p ≈ 0.3149: a mild imbalance that must not reach significance.
	p, significant := ChiSquare([][]uint64{{20, 30}, {25, 25}})
	if significant {
		t.Errorf("p = %v, must not be significant at 0.05", p)
	}
	if p < 0.30 || p > 0.32 {
		t.Errorf("p = %v, want about 0.315", p)
	}
}

func TestChiSquareDegenerateTables(t *testing.T) {
	tests := []struct {
		name  string
		table [][]uint64
	}{
		{"single row", [][]uint64{{5, 5}}},
		{"single column", [][]uint64{{5}, {5}}},
		{"empty", nil},
		{"all zero", [][]uint64{{0, 0}, {0, 0}}},
		{"zero row margin", [][]uint64{{0, 0}, {5, 5}}},
		{"zero column margin", [][]uint64{{0, 5}, {0, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, significant := ChiSquare(tt.table)
			if p != 1 || significant {
				t.Errorf("got (%v, %v), want (1, false)", p, significant)
			}
		})
	}
}

func TestChiSquareRowOrderInvariant(t *testing.T) {
	a, _ := ChiSquare([][]uint64{{40, 10}, {20, 30}})
	b, _ := ChiSquare([][]uint64{{20, 30}, {40, 10}})
	if math.Abs(a-b) > 1e-12 {
		t.Errorf("p-value depends on row order: %v vs %v", a, b)
	}
}

func TestChiSquareThreeOutcomeClasses(t *testing.T) {
	p, significant := ChiSquare([][]uint64{{40, 5, 5}, {10, 20, 20}})
	if !significant {
		t.Errorf("p = %v, want significant", p)
	}
}

func TestSignificanceFromBitmaps(t *testing.T) {
	part := roaring.New()
	nonPart := roaring.New()
	success := roaring.New()
	failure := roaring.New()
	// Participating cases 0-49 almost all succeed; non-participating 50-99
	// almost all fail.
	for i := uint32(0); i < 50; i++ {
		part.Add(i)
		nonPart.Add(i + 50)
		if i < 45 {
			success.Add(i)
			failure.Add(i + 50)
		} else {
			failure.Add(i)
			success.Add(i + 50)
		}
	}

	p, significant := Significance([2]*roaring.Bitmap{part, nonPart},
		[]*roaring.Bitmap{success, failure})
	if !significant {
		t.Errorf("p = %v, want significant", p)
	}
	if p > Alpha {
		t.Errorf("p = %v exceeds alpha", p)
	}
}

func TestSignificanceDisjointOutcome(t *testing.T) {
	// An outcome class that intersects nothing produces a zero column
	// margin, which is degenerate.
	part := roaring.BitmapOf(1, 2)
	nonPart := roaring.BitmapOf(3, 4)
	empty := roaring.New()
	other := roaring.BitmapOf(1, 2, 3, 4)

	p, significant := Significance([2]*roaring.Bitmap{part, nonPart},
		[]*roaring.Bitmap{empty, other})
	if p != 1 || significant {
		t.Errorf("got (%v, %v), want (1, false)", p, significant)
	}
}

func TestSignificanceSingleOutcomeClass(t *testing.T) {
	part := roaring.BitmapOf(1)
	nonPart := roaring.BitmapOf(2)
	p, significant := Significance([2]*roaring.Bitmap{part, nonPart},
		[]*roaring.Bitmap{roaring.BitmapOf(1, 2)})
	if p != 1 || significant {
		t.Errorf("got (%v, %v), want (1, false)", p, significant)
	}
}
