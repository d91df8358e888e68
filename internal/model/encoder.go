package model

import (
	"slices"

	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

// LabelEncoder maps signals to class indexes. The class list is frozen when an artifact is created
// so codes stay stable across runs whose label sets differ.
type LabelEncoder struct {
	Classes []types.Signal `json:"classes"`
}

// NewLabelEncoder returns the canonical encoder [Buy, Hold, Sell].
func NewLabelEncoder() LabelEncoder {
	return LabelEncoder{Classes: slices.Clone(types.AllSignals)}
}

func (e LabelEncoder) Len() int {
	return len(e.Classes)
}

func (e LabelEncoder) Encode(s types.Signal) (int, error) {
	i := slices.Index(e.Classes, s)
	if i < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unknown label %q", string(s))
	}

	return i, nil
}

// EncodeAll encodes labels in order.
func (e LabelEncoder) EncodeAll(signals []types.Signal) ([]int, error) {
	out := make([]int, len(signals))

	for i, s := range signals {
		code, err := e.Encode(s)
		if err != nil {
			return nil, err
		}

		out[i] = code
	}

	return out, nil
}

func (e LabelEncoder) Decode(code int) (types.Signal, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "label code %d out of range", code)
	}

	return e.Classes[code], nil
}

func (e LabelEncoder) Equal(o LabelEncoder) bool {
	return slices.Equal(e.Classes, o.Classes)
}
