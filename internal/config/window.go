package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

const windowAll = "all"

// TrainingWindow is either a trailing number of days or all history (None).
type TrainingWindow struct {
	days optional.Option[int]
}

// WindowAll keeps every row.
func WindowAll() TrainingWindow {
	return TrainingWindow{days: optional.None[int]()}
}

// WindowDays keeps rows dated strictly after latest - days.
func WindowDays(days int) TrainingWindow {
	return TrainingWindow{days: optional.Some(days)}
}

// Days returns the window length and whether a window is set.
func (w TrainingWindow) Days() (int, bool) {
	if w.days.IsNone() {
		return 0, false
	}

	days, err := w.days.Take()
	if err != nil {
		return 0, false
	}

	return days, true
}

// Option exposes the window as an optional value.
func (w TrainingWindow) Option() optional.Option[int] {
	return w.days
}

func (w TrainingWindow) String() string {
	if days, ok := w.Days(); ok {
		return strconv.Itoa(days)
	}

	return windowAll
}

func (w *TrainingWindow) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, windowAll) {
		*w = WindowAll()

		return nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("training_window must be a number of days or %q, got %q", windowAll, raw)
	}

	*w = WindowDays(days)

	return nil
}

func (w *TrainingWindow) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("training_window must be a scalar")
	}

	return w.parse(node.Value)
}

func (w TrainingWindow) MarshalYAML() (any, error) {
	if days, ok := w.Days(); ok {
		return days, nil
	}

	return windowAll, nil
}

func (w *TrainingWindow) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*w = WindowAll()

		return nil
	case float64:
		*w = WindowDays(int(v))

		return nil
	case string:
		return w.parse(v)
	default:
		return fmt.Errorf("training_window must be a number or %q", windowAll)
	}
}

func (w TrainingWindow) MarshalJSON() ([]byte, error) {
	v, _ := w.MarshalYAML()

	return json.Marshal(v)
}

// JSONSchema describes the window as a positive integer or "all".
func (TrainingWindow) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("1")},
			{Type: "string", Enum: []any{windowAll}},
		},
	}
}
