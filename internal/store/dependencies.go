package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Dependencies is the set of task IDs a task depends on. Order carries no
// meaning; ParseDependencies and the JSON decoder both drop duplicates.
type Dependencies []int64

// ParseDependencies parses the comma separated exchange form ("1,3,5").
// Tokens that are not non-negative integers are silently dropped.
func ParseDependencies(s string) Dependencies {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var deps Dependencies
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || !isDigits(tok) {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		deps = deps.add(id)
	}
	return deps
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d Dependencies) add(id int64) Dependencies {
	if d.Contains(id) {
		return d
	}
	return append(d, id)
}

// Contains reports whether id is in the set.
func (d Dependencies) Contains(id int64) bool {
	for _, v := range d {
		if v == id {
			return true
		}
	}
	return false
}

// String renders the canonical comma separated form.
func (d Dependencies) String() string {
	parts := make([]string, len(d))
	for i, id := range d {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (d Dependencies) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the comma separated string form, a JSON array of
// integers, or null.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var ids []int64
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("dependencies: %w", err)
		}
		var deps Dependencies
		for _, id := range ids {
			if id < 0 {
				continue
			}
			deps = deps.add(id)
		}
		*d = deps
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("dependencies must be a string or an array of ids: %w", err)
	}
	*d = ParseDependencies(s)
	return nil
}
