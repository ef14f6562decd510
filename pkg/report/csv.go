package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/RoaringBitmap/roaring"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
	"github.com/pippi2802/hlem-framework/pkg/stats"
)

// OutcomeRow is one statistically significant path correlated with a binary
// case outcome.
type OutcomeRow struct {
	Length           int
	Frequency        int
	Path             string
	PartSuccess      uint64
	PartUnsuccess    uint64
	NonPartSuccess   uint64
	NonPartUnsuccess uint64
	PValue           float64
}

// OutcomeRows tests every path against the success/failure partition and
// returns the rows whose association is significant at stats.Alpha.
func OutcomeRows(table hlem.Table, successful, unsuccessful *roaring.Bitmap) []OutcomeRow {
	var rows []OutcomeRow
	for _, r := range table.Rows {
		p, significant := stats.Significance(
			[2]*roaring.Bitmap{r.Participating, r.NonParticipating},
			[]*roaring.Bitmap{successful, unsuccessful},
		)
		if !significant {
			continue
		}
		rows = append(rows, OutcomeRow{
			Length:           r.Path.Len(),
			Frequency:        r.Frequency,
			Path:             string(r.Path.Key()),
			PartSuccess:      r.Participating.AndCardinality(successful),
			PartUnsuccess:    r.Participating.AndCardinality(unsuccessful),
			NonPartSuccess:   r.NonParticipating.AndCardinality(successful),
			NonPartUnsuccess: r.NonParticipating.AndCardinality(unsuccessful),
			PValue:           p,
		})
	}
	return rows
}

// WriteOutcomeCSV writes the significant-paths outcome table and returns
// the number of rows written.
func WriteOutcomeCSV(path string, table hlem.Table, successful, unsuccessful *roaring.Bitmap) (int, error) {
	rows := OutcomeRows(table, successful, unsuccessful)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("report: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Length", "Frequency", "Path", "Part&Success", "Part&Unsuccess",
		"NonPart&Success", "NonPart&Unsuccess", "p_value"}
	if err := w.Write(header); err != nil {
		return 0, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Length),
			strconv.Itoa(r.Frequency),
			r.Path,
			strconv.FormatUint(r.PartSuccess, 10),
			strconv.FormatUint(r.PartUnsuccess, 10),
			strconv.FormatUint(r.NonPartSuccess, 10),
			strconv.FormatUint(r.NonPartUnsuccess, 10),
			strconv.FormatFloat(r.PValue, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(rows), w.Error()
}

// ThroughputRow is one significant path correlated with the three
// throughput classes.
type ThroughputRow struct {
	Length    int
	Frequency int
	Path      string
	Part      [3]uint64
	NonPart   [3]uint64
	PValue    float64
}

// ThroughputRows tests every path against a 3-class throughput partition.
func ThroughputRows(table hlem.Table, classes [3]*roaring.Bitmap) []ThroughputRow {
	var rows []ThroughputRow
	for _, r := range table.Rows {
		p, significant := stats.Significance(
			[2]*roaring.Bitmap{r.Participating, r.NonParticipating},
			[]*roaring.Bitmap{classes[0], classes[1], classes[2]},
		)
		if !significant {
			continue
		}
		row := ThroughputRow{
			Length:    r.Path.Len(),
			Frequency: r.Frequency,
			Path:      string(r.Path.Key()),
			PValue:    p,
		}
		for i := range classes {
			row.Part[i] = r.Participating.AndCardinality(classes[i])
			row.NonPart[i] = r.NonParticipating.AndCardinality(classes[i])
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteThroughputCSV writes the 3-class throughput table and returns the
// number of rows written.
func WriteThroughputCSV(path string, table hlem.Table, classes [3]*roaring.Bitmap) (int, error) {
	rows := ThroughputRows(table, classes)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("report: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Length", "Frequency", "Path", "Part&Class1", "Part&Class2", "Part&Class3",
		"NonPart&Class1", "NonPart&Class2", "NonPart&Class3", "p"}
	if err := w.Write(header); err != nil {
		return 0, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Length),
			strconv.Itoa(r.Frequency),
			r.Path,
			strconv.FormatUint(r.Part[0], 10),
			strconv.FormatUint(r.Part[1], 10),
			strconv.FormatUint(r.Part[2], 10),
			strconv.FormatUint(r.NonPart[0], 10),
			strconv.FormatUint(r.NonPart[1], 10),
			strconv.FormatUint(r.NonPart[2], 10),
			strconv.FormatFloat(r.PValue, 'g', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(rows), w.Error()
}
