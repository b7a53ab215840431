package db

// Document is one stored record, as decoded from JSON. Numbers decode
// as float64, nested objects as map[string]any; the helpers below fold
// those back into the types the repositories want.
type Document map[string]any

// Int64 reads an integer field, tolerating the float64 that
// encoding/json produces. ok is false when the field is absent or not
// numeric.
func (d Document) Int64(field string) (int64, bool) {
	switch v := d[field].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// String reads a string field. Absent or non-string yields "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// StringMap reads a nested object field as map[string]string, skipping
// non-string values. Absent yields an empty, non-nil map.
func (d Document) StringMap(field string) map[string]string {
	out := map[string]string{}
	nested, ok := d[field].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range nested {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
