package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseJSONNumber reads a JSON number or a numeric string ("2.50"). present
// is false for null, an empty string, or a missing value. NaN and infinities
// are rejected.
func ParseJSONNumber(data []byte) (v float64, present bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false, nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	return v, true, nil
}

// LenientTask decodes a task submitted for ranking. estimated_hours and
// importance may be numbers or numeric strings; values that do not parse are
// dropped so scoring falls back to its defaults.
type LenientTask Task

func (t *LenientTask) UnmarshalJSON(data []byte) error {
	type plain Task
	var aux struct {
		plain
		EstimatedHours json.RawMessage `json:"estimated_hours"`
		Importance     json.RawMessage `json:"importance"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = LenientTask(aux.plain)

	t.EstimatedHours = nil
	if v, ok, err := ParseJSONNumber(aux.EstimatedHours); ok && err == nil {
		t.EstimatedHours = &v
	}

	t.Importance = 0
	if v, ok, err := ParseJSONNumber(aux.Importance); ok && err == nil && v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
		t.Importance = int(v)
	}
	return nil
}

// Tasks converts decoded tasks for the scoring engine.
func Tasks(lenient []LenientTask) []Task {
	tasks := make([]Task, len(lenient))
	for i := range lenient {
		tasks[i] = Task(lenient[i])
	}
	return tasks
}
