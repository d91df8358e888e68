package ingestion

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"github.com/shopspring/decimal"
)

// RowStats counts what happened to the rows of one file.
type RowStats struct {
	Read       int
	Kept       int
	Malformed  int
	Duplicates int
}

// Dropped is the number of rows that did not make it to the normalized output.
func (s RowStats) Dropped() int {
	return s.Malformed + s.Duplicates
}

// normalize decodes one raw floor sheet and coerces every row. In strict mode the first malformed
// row fails the whole file; otherwise malformed rows are counted and skipped.
func normalize(r io.Reader, date types.Date, strict bool) ([]types.Trade, RowStats, error) {
	var stats RowStats

	reader := newHeaderReader(r)

	var raws []*types.RawTrade
	if err := gocsv.UnmarshalCSV(reader, &raws); err != nil {
		return nil, stats, errors.Wrap(errors.ErrCodeMalformedFile, "failed to decode floor sheet", err)
	}

	if missing := reader.missingColumns(); len(missing) > 0 {
		return nil, stats, errors.Newf(errors.ErrCodeMalformedFile, "floor sheet is missing columns: %s", strings.Join(missing, ", "))
	}

	trades := make([]types.Trade, 0, len(raws))
	seen := make(map[types.Trade]struct{}, len(raws))

	for i, raw := range raws {
		stats.Read++

		// header is line 1
		line := i + 2

		trade, err := coerceTrade(raw, date, int64(i+1))
		if err != nil {
			if strict {
				return nil, stats, errors.Wrapf(errors.ErrCodeMalformedRow, err, "line %d", line)
			}

			stats.Malformed++

			continue
		}

		if _, dup := seen[trade]; dup {
			stats.Duplicates++

			continue
		}

		seen[trade] = struct{}{}
		trades = append(trades, trade)
	}

	stats.Kept = len(trades)

	return trades, stats, nil
}

// coerceTrade converts a raw row. position is used as the serial number when the row has none.
func coerceTrade(raw *types.RawTrade, date types.Date, position int64) (types.Trade, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw.Symbol))
	if symbol == "" {
		return types.Trade{}, fmt.Errorf("empty symbol")
	}

	quantity, err := parseNumber(raw.Quantity)
	if err != nil {
		return types.Trade{}, fmt.Errorf("quantity: %w", err)
	}

	if !quantity.IsInteger() || !quantity.IsPositive() {
		return types.Trade{}, fmt.Errorf("quantity must be a positive integer, got %s", quantity)
	}

	rate, err := parseNumber(raw.Rate)
	if err != nil {
		return types.Trade{}, fmt.Errorf("rate: %w", err)
	}

	if !rate.IsPositive() {
		return types.Trade{}, fmt.Errorf("rate must be positive, got %s", rate)
	}

	sn := position

	if s := strings.TrimSpace(raw.SN); s != "" {
		parsed, err := parseNumber(s)
		if err != nil || !parsed.IsInteger() {
			return types.Trade{}, fmt.Errorf("invalid serial number %q", raw.SN)
		}

		sn = parsed.IntPart()
	}

	return types.Trade{
		SN:         sn,
		ContractNo: strings.TrimSpace(raw.ContractNo),
		Symbol:     symbol,
		Buyer:      normalizeBroker(raw.Buyer),
		Seller:     normalizeBroker(raw.Seller),
		Quantity:   quantity.IntPart(),
		Rate:       rate.InexactFloat64(),
		// the reported amount is never trusted
		Amount: quantity.Mul(rate).InexactFloat64(),
		Date:   date,
	}, nil
}

// parseNumber strips thousands separators before parsing.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}

	return decimal.NewFromString(s)
}

// normalizeBroker renders numeric broker ids without padding or decimals ("021", "21.0" -> "21").
func normalizeBroker(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if d, err := parseNumber(s); err == nil && d.IsInteger() {
		return strconv.FormatInt(d.IntPart(), 10)
	}

	return s
}
