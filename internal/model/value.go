package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ValueKind tags how an observed value was captured.
type ValueKind string

// Value kinds.
const (
	KindText    ValueKind = "text"
	KindNumeric ValueKind = "numeric"
)

// Value is an observed field value. Raw always holds the display form;
// Parsed is set only for numeric values.
type Value struct {
	Kind   ValueKind
	Raw    string
	Parsed *float64
}

// Text returns a text value.
func Text(s string) Value {
	return Value{Kind: KindText, Raw: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{Kind: KindNumeric, Raw: strconv.FormatFloat(f, 'f', -1, 64), Parsed: &f}
}

// ValueOf converts a loosely typed decoded value (JSON, YAML, database
// driver) into a Value. Integers and floats become numeric; nil becomes
// empty text; anything else is formatted as text.
func ValueOf(v any) Value {
	switch n := v.(type) {
	case nil:
		return Text("")
	case Value:
		return n
	case string:
		return Text(n)
	case float64:
		return Number(n)
	case float32:
		return Number(float64(n))
	case int:
		return Number(float64(n))
	case int64:
		return Number(float64(n))
	case int32:
		return Number(float64(n))
	case uint64:
		return Number(float64(n))
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return Number(f)
		}
		return Text(n.String())
	default:
		return Text(fmt.Sprint(n))
	}
}

// IsNumeric reports whether the value was captured as a number.
func (v Value) IsNumeric() bool {
	return v.Kind == KindNumeric && v.Parsed != nil
}

func (v Value) String() string {
	return v.Raw
}

// MarshalJSON writes numeric values as JSON numbers and everything else as
// strings. NaN and infinities have no JSON number form and are written as text.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNumeric() && !math.IsNaN(*v.Parsed) && !math.IsInf(*v.Parsed, 0) {
		return []byte(strconv.FormatFloat(*v.Parsed, 'f', -1, 64)), nil
	}
	return json.Marshal(v.Raw)
}

// UnmarshalJSON accepts a JSON string, number, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Text("")
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode text value")
		}
		*v = Text(s)
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return eris.Wrapf(err, "model: decode value %s", string(data))
		}
		*v = Number(f)
		return nil
	}
}

// UnmarshalYAML accepts a scalar. Unquoted integers and floats become
// numeric values; everything else, including quoted numbers, is text.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("model: value at line %d must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = Text("")
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return eris.Wrapf(err, "model: decode value %q", node.Value)
		}
		*v = Number(f)
	default:
		*v = Text(node.Value)
	}
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	if v.IsNumeric() {
		return *v.Parsed, nil
	}
	return v.Raw, nil
}
