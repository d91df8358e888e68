package types

// Trade is one executed contract from a normalized floor sheet.
// Quantity and Rate are always positive; Amount is recomputed as Quantity x Rate.
type Trade struct {
	SN         int64   `csv:"SN" json:"sn"`
	ContractNo string  `csv:"ContractNo" json:"contract_no"`
	Symbol     string  `csv:"Symbol" json:"symbol"`
	Buyer      string  `csv:"Buyer" json:"buyer"`
	Seller     string  `csv:"Seller" json:"seller"`
	Quantity   int64   `csv:"Quantity" json:"quantity"`
	Rate       float64 `csv:"Rate" json:"rate"`
	Amount     float64 `csv:"Amount" json:"amount"`
	Date       Date    `csv:"Date" json:"date"`
}

// Notional returns Quantity x Rate.
func (t Trade) Notional() float64 {
	return float64(t.Quantity) * t.Rate
}

// HasBuyer reports whether the buyer broker reference is present.
func (t Trade) HasBuyer() bool {
	return t.Buyer != ""
}

// HasSeller reports whether the seller broker reference is present.
func (t Trade) HasSeller() bool {
	return t.Seller != ""
}

// RawTrade is a floor-sheet row exactly as it appears in a downloaded file.
// Numeric fields are locale formatted ("1,250.50") and are coerced during normalization.
type RawTrade struct {
	SN         string `csv:"SN"`
	ContractNo string `csv:"ContractNo"`
	Symbol     string `csv:"Symbol"`
	Buyer      string `csv:"Buyer"`
	Seller     string `csv:"Seller"`
	Quantity   string `csv:"Quantity"`
	Rate       string `csv:"Rate"`
	Amount     string `csv:"Amount"`
}
