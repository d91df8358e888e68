package ingestion

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

var (
	rawFilePattern   = regexp.MustCompile(`^floor_sheet_data_(\d{4}-\d{2}-\d{2})\.csv$`)
	cleanFilePattern = regexp.MustCompile(`^clean_sheet_data_(\d{4}-\d{2}-\d{2})\.csv$`)
)

// SheetFile is a floor-sheet file whose trading date comes from its name.
type SheetFile struct {
	Path string
	Date types.Date
}

// RawFileName returns the raw floor-sheet name for a date.
func RawFileName(d types.Date) string {
	return "floor_sheet_data_" + d.String() + ".csv"
}

// CleanFileName returns the normalized floor-sheet name for a date.
func CleanFileName(d types.Date) string {
	return "clean_sheet_data_" + d.String() + ".csv"
}

// DiscoverRaw lists raw floor sheets in dir ordered by date. Names that do not match are ignored.
func DiscoverRaw(dir string) ([]SheetFile, error) {
	files, err := discover(dir, rawFilePattern)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRawFileNotFound, err, "failed to list raw floor sheets in %s", dir)
	}

	return files, nil
}

// DiscoverClean lists normalized floor sheets in dir ordered by date.
func DiscoverClean(dir string) ([]SheetFile, error) {
	files, err := discover(dir, cleanFilePattern)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to list normalized floor sheets in %s", dir)
	}

	return files, nil
}

func discover(dir string, pattern *regexp.Regexp) ([]SheetFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]SheetFile, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}

		date, err := types.ParseDate(match[1])
		if err != nil {
			continue
		}

		files = append(files, SheetFile{Path: filepath.Join(dir, entry.Name()), Date: date})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Date.Before(files[j].Date) })

	return files, nil
}
