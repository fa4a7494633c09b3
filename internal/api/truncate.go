// internal/api/truncate.go
package api

import (
	"encoding/json"
	"fmt"
	"sort"
)

// defaultCharBudget caps serialized tool responses for text-channel callers.
// Budgets count bytes, which for these ASCII-dominated payloads matches
// characters.
const defaultCharBudget = 90000

// truncationFloor is the smallest entry count truncation may produce before
// giving up and reporting the overflow instead.
const truncationFloor = 1

// Truncation records how a payload was reduced to fit the response budget.
type Truncation struct {
	Truncated      bool   `json:"truncated"`
	Field          string `json:"field,omitempty"`
	TotalAvailable int    `json:"total_available,omitempty"`
	Showing        int    `json:"showing,omitempty"`
}

// TruncateJSON serializes v, and when the JSON exceeds budget characters,
// shrinks the largest top-level array field in repeated 20% steps until it
// fits, attaching the truncation record to the payload. A payload already
// within budget comes back unchanged. When not even the floor fits, the
// returned payload is error-shaped and names the available entry count,
// signalled by Showing 0.
func TruncateJSON(v any, budget int) ([]byte, Truncation, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, Truncation{}, err
	}
	if len(raw) <= budget {
		return raw, Truncation{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	field, items := largestArrayField(fields)
	if field == "" || len(items) == 0 {
		msg := fmt.Sprintf("response of %d characters exceeds the %d-character budget and has no list field to shrink", len(raw), budget)
		payload, err := json.Marshal(map[string]string{"error": msg})
		return payload, Truncation{Truncated: true}, err
	}

	total := len(items)
	for n := total * 4 / 5; n >= truncationFloor; n = n * 4 / 5 {
		trunc := Truncation{Truncated: true, Field: field, TotalAvailable: total, Showing: n}

		shrunk, err := json.Marshal(items[:n])
		if err != nil {
			return nil, Truncation{}, err
		}
		meta, err := json.Marshal(trunc)
		if err != nil {
			return nil, Truncation{}, err
		}
		fields[field] = shrunk
		fields["truncation"] = meta

		candidate, err := json.Marshal(fields)
		if err != nil {
			return nil, Truncation{}, err
		}
		if len(candidate) <= budget {
			return candidate, trunc, nil
		}
	}

	trunc := Truncation{Truncated: true, Field: field, TotalAvailable: total, Showing: 0}
	msg := fmt.Sprintf("result too large: %d entries in %q cannot fit the %d-character budget, retry with a narrower query", total, field, budget)
	payload, err := json.Marshal(map[string]string{"error": msg})
	return payload, trunc, err
}

// largestArrayField returns the top-level array field with the longest
// serialized form, decoded into its elements. Keys are scanned in sorted
// order so ties resolve deterministically.
func largestArrayField(fields map[string]json.RawMessage) (string, []json.RawMessage) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		best      string
		bestItems []json.RawMessage
		bestSize  int
	)
	for _, k := range keys {
		v := fields[k]
		if len(v) == 0 || v[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			continue
		}
		if len(v) > bestSize {
			best, bestItems, bestSize = k, items, len(v)
		}
	}
	return best, bestItems
}
