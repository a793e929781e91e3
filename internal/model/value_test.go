package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValueOf(t *testing.T) {
	assert.Equal(t, Text("abc"), ValueOf("abc"))
	assert.Equal(t, Text(""), ValueOf(nil))
	assert.True(t, ValueOf(42).IsNumeric())
	assert.Equal(t, "42", ValueOf(int64(42)).Raw)
	assert.Equal(t, "18250.5", ValueOf(json.Number("18250.50")).Raw)
	assert.Equal(t, Text("1e"), ValueOf(json.Number("1e")))
	assert.Equal(t, Text("true"), ValueOf(true))
}

func TestValue_JSON(t *testing.T) {
	var got struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "00123", "b": 125000, "c": null}`), &got))

	assert.Equal(t, Text("00123"), got.A)
	require.True(t, got.B.IsNumeric())
	assert.Equal(t, 125000.0, *got.B.Parsed)
	assert.Equal(t, Text(""), got.C)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "00123", "b": 125000, "c": ""}`, string(out))
}

func TestValue_JSONNonFinite(t *testing.T) {
	out, err := json.Marshal([]Value{Number(math.NaN()), Number(math.Inf(1)), Number(math.Inf(-1)), Number(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `["NaN", "+Inf", "-Inf", 1.5]`, string(out))
}

func TestValue_JSONInvalid(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
}

func TestValue_YAML(t *testing.T) {
	var got struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
		C Value `yaml:"c"`
		D Value `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1234 Jasper Ave\nb: 118000.25\nc: \"00123\"\nd:\n"), &got))

	assert.Equal(t, Text("1234 Jasper Ave"), got.A)
	require.True(t, got.B.IsNumeric())
	assert.InDelta(t, 118000.25, *got.B.Parsed, 1e-9)
	assert.Equal(t, Text("00123"), got.C)
	assert.False(t, got.D.IsNumeric())
	assert.Empty(t, got.D.Raw)

	out, err := yaml.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(out), "b: 118000.25")
}

func TestValue_YAMLRejectsMapping(t *testing.T) {
	var v struct {
		A Value `yaml:"a"`
	}
	assert.Error(t, yaml.Unmarshal([]byte("a:\n  x: 1\n"), &v))
}
