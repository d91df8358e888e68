package pipeline

import (
	"os"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/store"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
)

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

func dateRange[T any](rows []T, date func(T) types.Date) (string, string) {
	if len(rows) == 0 {
		return "", ""
	}

	first, last := date(rows[0]), date(rows[0])

	for _, r := range rows[1:] {
		d := date(r)
		if d.Before(first) {
			first = d
		}

		if d.After(last) {
			last = d
		}
	}

	return first.String(), last.String()
}

func technicalManifest(rows []types.TechnicalFeature, fp string) store.Manifest {
	first, last := dateRange(rows, func(r types.TechnicalFeature) types.Date { return r.Date })

	return store.Manifest{
		Table:       store.TechnicalTable,
		Rows:        len(rows),
		Fingerprint: fp,
		FirstDate:   first,
		LastDate:    last,
		WrittenAt:   time.Now().UTC(),
	}
}

func brokerManifest(bf types.BrokerFeatures, fp string) store.Manifest {
	first, last := dateRange(bf.Concentration, func(r types.BrokerConcentration) types.Date { return r.Date })

	return store.Manifest{
		Table:       store.BrokerTable(bf.Mode),
		Rows:        len(bf.Concentration),
		Fingerprint: fp,
		FirstDate:   first,
		LastDate:    last,
		BrokerMode:  string(bf.Mode),
		WrittenAt:   time.Now().UTC(),
	}
}

func targetManifest(table string, horizon types.Horizon, labels []types.TargetLabel, fp string) store.Manifest {
	first, last := dateRange(labels, func(r types.TargetLabel) types.Date { return r.Date })

	return store.Manifest{
		Table:       table,
		Rows:        len(labels),
		Fingerprint: fp,
		FirstDate:   first,
		LastDate:    last,
		Horizon:     string(horizon),
		WrittenAt:   time.Now().UTC(),
	}
}
