// Package models contains domain entities and persisted value types for the business registry
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanEnum implements sql.Scanner for string-backed enums
func scanEnum[T ~string](dst *T, value any) error {
	if value == nil {
		*dst = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*dst = T(v)
	case []byte:
		*dst = T(string(v))
	default:
		return fmt.Errorf("cannot scan %T into %T", value, *dst)
	}

	return nil
}

// enumValue implements driver.Valuer for string-backed enums, refusing values
// outside the whitelist
func enumValue[T ~string](v T, valid bool) (driver.Value, error) {
	if !valid {
		return nil, fmt.Errorf("invalid %T: %q", v, string(v))
	}
	return string(v), nil
}

// jsonValue marshals a JSON column
func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// jsonScan unmarshals a JSON column
func jsonScan(dst any, value any) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, dst)
}
