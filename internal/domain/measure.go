package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measure is an optional numeric metric. The zero value is absent.
type Measure struct {
	Float64 float64
	Valid   bool
}

// Of returns a present Measure holding v.
func Of(v float64) Measure {
	return Measure{Float64: v, Valid: true}
}

// Ptr returns the value as a pointer, nil when absent.
func (m Measure) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Float64
	return &v
}

// String formats the value for display; absent values render empty.
func (m Measure) String() string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Float64, 'f', -1, 64)
}

// ParseMeasure parses user input. Blank input yields an absent Measure.
func ParseMeasure(raw string) (Measure, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Measure{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Measure{}, fmt.Errorf("%q is not a number", raw)
	}
	return Of(v), nil
}

// MarshalJSON encodes an absent Measure as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Float64)
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null. Older local
// data stored raw form strings, so non-numeric strings decode as absent
// rather than failing the whole collection.
func (m *Measure) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Measure{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseMeasure(s)
		if err != nil {
			*m = Measure{}
			return nil
		}
		*m = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Of(v)
	return nil
}

// Scan implements sql.Scanner.
func (m *Measure) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Measure{}
	case float64:
		*m = Of(v)
	case float32:
		*m = Of(float64(v))
	case int64:
		*m = Of(float64(v))
	case []byte:
		parsed, err := ParseMeasure(string(v))
		if err != nil {
			return err
		}
		*m = parsed
	case string:
		parsed, err := ParseMeasure(v)
		if err != nil {
			return err
		}
		*m = parsed
	default:
		return fmt.Errorf("measure: unsupported scan type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (m Measure) Value() (driver.Value, error) {
	if !m.Valid {
		return nil, nil
	}
	return m.Float64, nil
}
