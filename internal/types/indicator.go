package types

type IndicatorType string

const (
	IndicatorTypeMA     IndicatorType = "ma"
	IndicatorTypeSTD    IndicatorType = "std"
	IndicatorTypeRSI    IndicatorType = "rsi"
	IndicatorTypeReturn IndicatorType = "return"
)
