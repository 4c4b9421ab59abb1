package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// flatten renders v as a map of dotted paths to scalar strings, e.g.
// {"items.0.name": "Dosa", "amount": "500"}. Values go through their JSON
// form so decimals and times flatten the way the API shows them.
func flatten(v any) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	out := map[string]string{}
	flattenInto(out, "", tree)
	return out, nil
}

func flattenInto(out map[string]string, prefix string, v any) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flattenInto(out, join(k), child)
		}
	case []any:
		out[join("len")] = strconv.Itoa(len(t))
		for i, child := range t {
			flattenInto(out, join(strconv.Itoa(i)), child)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

// matchResult checks that every expected path is present in got with an
// equal value. Extra paths in got are ignored.
func matchResult(expected map[string]any, got map[string]string) []string {
	if len(expected) == 0 {
		return nil
	}
	want, err := flatten(expected)
	if err != nil {
		return []string{err.Error()}
	}
	var mismatches []string
	for _, k := range sortedKeys(want) {
		actual, ok := got[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("result %q missing", k))
			continue
		}
		if !matchValue(want[k], actual) {
			mismatches = append(mismatches, fmt.Sprintf("result %q: expected %q, got %q", k, want[k], actual))
		}
	}
	return mismatches
}

// matchValue compares two scalars as strings, falling back to numeric
// equality so "300" matches "300.00".
func matchValue(expected, actual string) bool {
	if expected == actual {
		return true
	}
	a, errA := decimal.NewFromString(expected)
	b, errB := decimal.NewFromString(actual)
	return errA == nil && errB == nil && a.Equal(b)
}
