package ingestion

import (
	"encoding/csv"
	"io"
	"strings"
)

// canonical column for every accepted header spelling, keyed by folded name
var headerAliases = map[string]string{
	"sn":             "SN",
	"sno":            "SN",
	"serialno":       "SN",
	"contractno":     "ContractNo",
	"contractnumber": "ContractNo",
	"transactionno":  "ContractNo",
	"symbol":         "Symbol",
	"stocksymbol":    "Symbol",
	"stock":          "Symbol",
	"buyer":          "Buyer",
	"buyerbroker":    "Buyer",
	"buyerbrokerno":  "Buyer",
	"seller":         "Seller",
	"sellerbroker":   "Seller",
	"sellerbrokerno": "Seller",
	"quantity":       "Quantity",
	"qty":            "Quantity",
	"sharequantity":  "Quantity",
	"rate":           "Rate",
	"price":          "Rate",
	"amount":         "Amount",
}

// requiredColumns must be present for a file to be decodable at all.
var requiredColumns = []string{"Symbol", "Quantity", "Rate"}

func foldHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))

	var b strings.Builder
	for _, r := range h {
		switch r {
		case ' ', '_', '.', '-', '#', '(', ')':
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// NormalizeHeader maps a raw column name to its canonical name. Unknown names are returned trimmed.
func NormalizeHeader(h string) string {
	if canonical, ok := headerAliases[foldHeader(h)]; ok {
		return canonical
	}

	return strings.TrimSpace(h)
}

// headerReader rewrites the first record of a CSV stream to canonical column names so the
// rows can be decoded straight into RawTrade.
type headerReader struct {
	r          *csv.Reader
	headerSeen bool
	header     []string
}

func newHeaderReader(r io.Reader) *headerReader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	return &headerReader{r: reader}
}

func (h *headerReader) Read() ([]string, error) {
	record, err := h.r.Read()
	if err != nil {
		return nil, err
	}

	if !h.headerSeen {
		h.headerSeen = true
		for i := range record {
			record[i] = NormalizeHeader(record[i])
		}

		h.header = record
	}

	return record, nil
}

func (h *headerReader) ReadAll() ([][]string, error) {
	var records [][]string

	for {
		record, err := h.Read()
		if err == io.EOF {
			return records, nil
		}

		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}
}

// missingColumns returns the required canonical columns absent from the header.
func (h *headerReader) missingColumns() []string {
	present := make(map[string]bool, len(h.header))
	for _, col := range h.header {
		present[col] = true
	}

	var missing []string

	for _, col := range requiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	return missing
}
