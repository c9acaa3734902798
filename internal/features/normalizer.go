package features

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vetml/internal/domain/patient"
)

// Normalize maps client field names onto the canonical vocabulary.
// Unrecognized fields land in Extra unchanged. When a synonym and the
// canonical name are both sent, the canonical name wins. Never fails.
func Normalize(raw map[string]interface{}) *patient.Record {
	rec := patient.NewRecord()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Synonyms first, exact canonical names second so they overwrite
	for _, exact := range []bool{false, true} {
		for _, key := range keys {
			canonical, ok := patient.Canonical(key)
			if !ok {
				if !exact && key != patient.FieldFutureDisease {
					rec.Extra[key] = raw[key]
				}
				continue
			}
			if (key == canonical) != exact {
				continue
			}
			assign(rec, canonical, raw[key])
		}
	}
	return rec
}

func assign(rec *patient.Record, field string, value interface{}) {
	if patient.IsNumeric(field) {
		if f, ok := toNumber(value); ok {
			rec.SetNumber(field, f)
		}
		return
	}
	if s, ok := toText(value); ok {
		rec.SetText(field, s)
	}
}

// toNumber accepts JSON numbers and numeric strings. Anything else counts as absent.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toText flattens a value to text. Lists are joined with ", ".
func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := toText(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	case []string:
		return toText(stringsToAny(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func stringsToAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
