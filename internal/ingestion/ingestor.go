// Package ingestion discovers raw daily floor sheets, coerces them into canonical trades and
// writes one normalized file per trading date. Reprocessing a date is skipped once its
// normalized file exists.
package ingestion

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/internal/utils"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type FileStatus string

const (
	FileStatusProcessed FileStatus = "processed"
	FileStatusSkipped   FileStatus = "skipped"
	FileStatusFailed    FileStatus = "failed"
)

// FileResult describes the outcome for one raw file.
type FileResult struct {
	Date   types.Date
	Source string
	Output string
	Status FileStatus
	Rows   RowStats
	Err    error
}

// Summary aggregates the outcome of one ingestion run.
type Summary struct {
	Files     []FileResult
	Processed int
	Skipped   int
	Failed    int
	RowsKept  int
	RowsDrop  int
}

func (s *Summary) add(r FileResult) {
	s.Files = append(s.Files, r)

	switch r.Status {
	case FileStatusProcessed:
		s.Processed++
	case FileStatusSkipped:
		s.Skipped++
	case FileStatusFailed:
		s.Failed++
	}

	s.RowsKept += r.Rows.Kept
	s.RowsDrop += r.Rows.Dropped()
}

type Ingestor struct {
	rawDir       string
	processedDir string
	strict       bool
	progress     io.Writer
	log          *logger.Logger
}

type Option func(*Ingestor)

// WithProgress renders a progress bar on w while files are normalized.
func WithProgress(w io.Writer) Option {
	return func(i *Ingestor) {
		i.progress = w
	}
}

func NewIngestor(cfg *config.Config, log *logger.Logger, opts ...Option) *Ingestor {
	i := &Ingestor{
		rawDir:       cfg.Data.RawPath,
		processedDir: cfg.Data.ProcessedPath,
		strict:       cfg.Ingestion.Strict,
		log:          log.Named("ingestion"),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Run normalizes every raw floor sheet that has no normalized output yet. A file that fails is
// recorded in the summary and the run moves on to the next date.
func (i *Ingestor) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	files, err := DiscoverRaw(i.rawDir)
	if err != nil {
		return summary, err
	}

	if len(files) == 0 {
		i.log.Warn("No raw floor sheets found", zap.String("dir", i.rawDir))

		return summary, nil
	}

	if err := os.MkdirAll(i.processedDir, 0o755); err != nil {
		return summary, errors.Wrap(errors.ErrCodeNormalizedWriteFailed, "failed to create processed directory", err)
	}

	var bar *progressbar.ProgressBar
	if i.progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(i.progress),
			progressbar.OptionSetDescription("Normalizing floor sheets"),
			progressbar.OptionShowCount(),
		)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.add(i.processFile(file))

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	i.log.Info("Ingestion finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("rows_kept", summary.RowsKept),
		zap.Int("rows_dropped", summary.RowsDrop),
	)

	return summary, nil
}

func (i *Ingestor) processFile(file SheetFile) FileResult {
	result := FileResult{
		Date:   file.Date,
		Source: file.Path,
		Output: filepath.Join(i.processedDir, CleanFileName(file.Date)),
	}

	if utils.FileExists(result.Output) {
		i.log.Debug("Skipping already normalized floor sheet", zap.String("date", file.Date.String()))
		result.Status = FileStatusSkipped

		return result
	}

	trades, stats, err := i.normalizeFile(file)
	result.Rows = stats

	if err != nil {
		i.log.Error("Failed to normalize floor sheet",
			zap.String("file", file.Path),
			zap.Error(err),
		)

		result.Status = FileStatusFailed
		result.Err = err

		return result
	}

	if err := utils.WriteFileAtomic(result.Output, func(w io.Writer) error {
		return gocsv.Marshal(trades, w)
	}); err != nil {
		i.log.Error("Failed to write normalized floor sheet", zap.String("file", result.Output), zap.Error(err))

		result.Status = FileStatusFailed
		result.Err = errors.Wrap(errors.ErrCodeNormalizedWriteFailed, "failed to write normalized floor sheet", err)

		return result
	}

	if stats.Dropped() > 0 {
		i.log.Warn("Dropped floor-sheet rows",
			zap.String("date", file.Date.String()),
			zap.Int("malformed", stats.Malformed),
			zap.Int("duplicates", stats.Duplicates),
		)
	}

	result.Status = FileStatusProcessed

	return result
}

func (i *Ingestor) normalizeFile(file SheetFile) ([]types.Trade, RowStats, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, RowStats{}, errors.Wrap(errors.ErrCodeRawFileNotFound, "failed to open raw floor sheet", err)
	}
	defer f.Close()

	return normalize(f, file.Date, i.strict)
}

// CleanFiles lists the normalized floor sheets available to downstream stages.
func (i *Ingestor) CleanFiles() ([]SheetFile, error) {
	return DiscoverClean(i.processedDir)
}

// LoadCanonical loads every normalized floor sheet into one record set ordered by date, keeping
// file order within a date.
func (i *Ingestor) LoadCanonical(ctx context.Context) ([]types.Trade, error) {
	files, err := i.CleanFiles()
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoRawData, "no normalized floor sheets in %s", i.processedDir)
	}

	var all []types.Trade

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trades, err := readClean(file.Path)
		if err != nil {
			return nil, err
		}

		all = append(all, trades...)
	}

	i.log.Debug("Loaded normalized trades", zap.Int("files", len(files)), zap.Int("trades", len(all)))

	return all, nil
}

func readClean(path string) ([]types.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open %s", path)
	}
	defer f.Close()

	var trades []types.Trade
	if err := gocsv.UnmarshalFile(f, &trades); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeMalformedFile, err, "failed to decode %s", path)
	}

	return trades, nil
}
