package ffprobe

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

func stringField(raw map[string]any, key string) Optional[string] {
	switch v := raw[key].(type) {
	case string:
		return Some(v)
	case json.Number:
		return Some(v.String())
	default:
		return Optional[string]{}
	}
}

func intField(raw map[string]any, key string) Optional[int] {
	n := int64Field(raw, key)
	if !n.ok || n.value > math.MaxInt32 || n.value < math.MinInt32 {
		return Optional[int]{}
	}
	return Some(int(n.value))
}

func int64Field(raw map[string]any, key string) Optional[int64] {
	switch v := raw[key].(type) {
	case json.Number:
		return parseInt64(v.String())
	case string:
		return parseInt64(v)
	case int:
		return Some(int64(v))
	case int64:
		return Some(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return Some(int64(v))
		}
	}
	return Optional[int64]{}
}

func floatField(raw map[string]any, key string) Optional[float64] {
	switch v := raw[key].(type) {
	case json.Number:
		return parseFloat(v.String())
	case string:
		return parseFloat(v)
	case int:
		return Some(float64(v))
	case int64:
		return Some(float64(v))
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return Some(v)
		}
	}
	return Optional[float64]{}
}

func parseInt64(value string) Optional[int64] {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return Optional[int64]{}
	}
	if parsed, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return Some(parsed)
	}
	// ffprobe occasionally reports integral rates as "48000.000000".
	f := parseFloat(cleaned)
	if f.ok && f.value == math.Trunc(f.value) && math.Abs(f.value) < math.MaxInt64 {
		return Some(int64(f.value))
	}
	return Optional[int64]{}
}

func parseFloat(value string) Optional[float64] {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return Optional[float64]{}
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return Optional[float64]{}
	}
	return Some(parsed)
}

func putString(dst map[string]any, key string, field Optional[string]) {
	if v, ok := field.Get(); ok {
		dst[key] = v
	}
}

func putInt(dst map[string]any, key string, field Optional[int]) {
	if v, ok := field.Get(); ok {
		dst[key] = v
	}
}

// ffprobe encodes several numeric fields as strings; mirror that on output.
func putIntString(dst map[string]any, key string, field Optional[int]) {
	if v, ok := field.Get(); ok {
		dst[key] = strconv.Itoa(v)
	}
}

func putInt64String(dst map[string]any, key string, field Optional[int64]) {
	if v, ok := field.Get(); ok {
		dst[key] = strconv.FormatInt(v, 10)
	}
}

func putFloatString(dst map[string]any, key string, field Optional[float64]) {
	if v, ok := field.Get(); ok {
		dst[key] = strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
