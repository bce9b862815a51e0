package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Field names a value inside a Record.
type Field string

// Record is an open-ended bag of field values describing one business entity.
// Values follow the JSON data model (string, float64, bool, nil, nested
// map[string]any and []any); integer kinds and time.Time are accepted and
// normalized when stringified.
type Record map[string]any

// Get returns the raw value stored under field.
func (r Record) Get(field Field) (any, bool) {
	v, ok := r[string(field)]
	return v, ok
}

// Set stores value under field.
func (r Record) Set(field Field, value any) {
	r[string(field)] = value
}

// String returns the normalized string form of field. Missing and nil values
// return "".
func (r Record) String(field Field) string {
	return NormalizeValue(r[string(field)])
}

// Bool returns the boolean value of field, defaulting to false.
func (r Record) Bool(field Field) bool {
	switch v := r[string(field)].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// ID returns the record identifier, or "" for records not yet created.
func (r Record) ID() string {
	return r.String(FieldID)
}

// Clone returns a deep copy of the record so callers can mutate it freely.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge copies every field of src into r, overwriting existing values.
func (r Record) Merge(src Record) {
	for k, v := range src {
		r[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// NormalizeValue renders a record value as a canonical string: nil is "",
// booleans are "true"/"false", numbers use the shortest decimal form, dates at
// midnight UTC use YYYY-MM-DD, and nested values are encoded as JSON with
// sorted keys.
func NormalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	case time.Time:
		return normalizeTime(t)
	case *time.Time:
		if t == nil {
			return ""
		}
		return normalizeTime(*t)
	case map[string]any, Record, []any, []string:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func normalizeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format("2006-01-02")
	}
	return u.Format(time.RFC3339)
}
