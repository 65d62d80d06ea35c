package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonb stores a Go value in a jsonb column.
type jsonb[T any] struct {
	V T
}

func jsonOf[T any](v T) jsonb[T] { return jsonb[T]{V: v} }

func (j jsonb[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea, so hand it a string.
	return string(b), nil
}

func (j *jsonb[T]) Scan(src interface{}) error {
	var zero T
	switch v := src.(type) {
	case nil:
		j.V = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.V)
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	default:
		return fmt.Errorf("jsonb: cannot scan %T", src)
	}
}
