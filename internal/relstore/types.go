package relstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a GORM-compatible jsonb column backed by a generic map.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return fmt.Errorf("relstore: unsupported JSONMap scan type %T", value)
		}
	}
	return json.Unmarshal(b, m)
}

// StringList is a GORM-compatible jsonb column backed by a string slice.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return fmt.Errorf("relstore: unsupported StringList scan type %T", value)
		}
	}
	return json.Unmarshal(b, l)
}

// FloatList is a GORM-compatible jsonb column backed by a float64 slice,
// used for PerformanceMetricSnapshot.MetricsHistory.
type FloatList []float64

func (l FloatList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *FloatList) Scan(value interface{}) error {
	if value == nil {
		*l = FloatList{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return fmt.Errorf("relstore: unsupported FloatList scan type %T", value)
		}
	}
	return json.Unmarshal(b, l)
}
