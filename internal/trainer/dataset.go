package trainer

import (
	"math"
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/model"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

// Merge inner-joins technical features, broker concentration and targets on (date, symbol). The
// result is ordered by date, then symbol.
func Merge(technical []types.TechnicalFeature, broker []types.BrokerConcentration, targets []types.TargetLabel) []types.LabeledRow {
	brokerByKey := make(map[types.Key]types.BrokerConcentration, len(broker))
	for _, b := range broker {
		brokerByKey[b.Key()] = b
	}

	targetByKey := make(map[types.Key]types.Signal, len(targets))
	for _, t := range targets {
		targetByKey[t.Key()] = t.Target
	}

	rows := make([]types.LabeledRow, 0, len(technical))

	for _, t := range technical {
		b, ok := brokerByKey[t.Key()]
		if !ok {
			continue
		}

		target, ok := targetByKey[t.Key()]
		if !ok {
			continue
		}

		rows = append(rows, types.LabeledRow{
			FeatureRow: types.FeatureRow{Technical: t, Broker: b},
			Target:     target,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key().Less(rows[j].Key())
	})

	return rows
}

// ApplyWindow keeps the rows dated strictly after latest - days. rows must be ordered by date.
func ApplyWindow(rows []types.LabeledRow, window config.TrainingWindow) []types.LabeledRow {
	days, ok := window.Days()
	if !ok || len(rows) == 0 {
		return rows
	}

	cutoff := rows[len(rows)-1].Technical.Date.AddDays(-days)

	start := sort.Search(len(rows), func(i int) bool {
		return rows[i].Technical.Date.After(cutoff)
	})

	return rows[start:]
}

// SplitIndex returns the index where the chronological test split starts: the last
// ceil(n * testSize) rows are held out.
func SplitIndex(n int, testSize float64) int {
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest > n {
		nTest = n
	}

	return n - nTest
}

// Split cuts ds chronologically into the training rows and the last ceil(n * testSize) test rows.
// ds must be ordered by date.
func Split(ds Dataset, testSize float64) (train, test Dataset) {
	at := SplitIndex(ds.Len(), testSize)

	return ds.Slice(0, at), ds.Slice(at, ds.Len())
}

// Dataset is the encoded design matrix of a training run.
type Dataset struct {
	X    [][]float64
	Y    []int
	Rows []types.LabeledRow
}

// Encode aligns every row with schema and encodes its target with labels.
func Encode(rows []types.LabeledRow, schema model.FeatureSchema, labels model.LabelEncoder) (Dataset, model.Reconciliation, error) {
	ds := Dataset{
		X:    make([][]float64, len(rows)),
		Y:    make([]int, len(rows)),
		Rows: rows,
	}

	var rec model.Reconciliation

	for i, row := range rows {
		vector, r := schema.Reconcile(row.Values())
		if i == 0 {
			rec = r
		}

		code, err := labels.Encode(row.Target)
		if err != nil {
			return Dataset{}, rec, err
		}

		ds.X[i] = vector
		ds.Y[i] = code
	}

	return ds, rec, nil
}

// Slice returns the rows in [from, to).
func (d Dataset) Slice(from, to int) Dataset {
	return Dataset{X: d.X[from:to], Y: d.Y[from:to], Rows: d.Rows[from:to]}
}

func (d Dataset) Len() int {
	return len(d.Y)
}

// DateRange returns the first and last row dates. Both are zero for an empty dataset.
func (d Dataset) DateRange() (first, last types.Date) {
	if len(d.Rows) == 0 {
		return types.Date{}, types.Date{}
	}

	return d.Rows[0].Technical.Date, d.Rows[len(d.Rows)-1].Technical.Date
}
