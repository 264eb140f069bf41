package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ScopeList is an ordered list of permission scope strings. It serializes to a
// JSON array in the storage substrate so the column stays portable between
// PostgreSQL and the SQLite driver used in tests.
type ScopeList []string

// Value implements driver.Valuer.
func (s ScopeList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *ScopeList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported scope list source type %T", src)
	}

	if len(data) == 0 {
		*s = nil
		return nil
	}

	var scopes []string
	if err := json.Unmarshal(data, &scopes); err != nil {
		return fmt.Errorf("decode scope list: %w", err)
	}
	*s = scopes
	return nil
}

// Contains reports whether the list carries scope verbatim.
func (s ScopeList) Contains(scope string) bool {
	for _, candidate := range s {
		if candidate == scope {
			return true
		}
	}
	return false
}
