package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DetailKind enumerates the value kinds a detail entry may hold.
type DetailKind int

const (
	DetailString DetailKind = iota
	DetailInt
	DetailFloat
	DetailBool
)

// DetailValue is a small tagged union used in explanation payloads.
type DetailValue struct {
	kind DetailKind
	s    string
	i    int
	f    float64
	b    bool
}

// Details maps explanation keys to scalar values.
type Details map[string]DetailValue

func String(v string) DetailValue { return DetailValue{kind: DetailString, s: v} }

func Int(v int) DetailValue { return DetailValue{kind: DetailInt, i: v} }

func Float(v float64) DetailValue { return DetailValue{kind: DetailFloat, f: v} }

func Bool(v bool) DetailValue { return DetailValue{kind: DetailBool, b: v} }

func (d DetailValue) Kind() DetailKind { return d.kind }

// AsInt returns the integer payload; ok is false for other kinds.
func (d DetailValue) AsInt() (int, bool) {
	if d.kind != DetailInt {
		return 0, false
	}
	return d.i, true
}

// AsBool returns the boolean payload; ok is false for other kinds.
func (d DetailValue) AsBool() (bool, bool) {
	if d.kind != DetailBool {
		return false, false
	}
	return d.b, true
}

// AsFloat returns the float payload. Integers widen.
func (d DetailValue) AsFloat() (float64, bool) {
	switch d.kind {
	case DetailFloat:
		return d.f, true
	case DetailInt:
		return float64(d.i), true
	default:
		return 0, false
	}
}

func (d DetailValue) String() string {
	switch d.kind {
	case DetailInt:
		return strconv.Itoa(d.i)
	case DetailFloat:
		return strconv.FormatFloat(d.f, 'f', -1, 64)
	case DetailBool:
		return strconv.FormatBool(d.b)
	default:
		return d.s
	}
}

func (d DetailValue) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case DetailInt:
		return json.Marshal(d.i)
	case DetailFloat:
		return json.Marshal(d.f)
	case DetailBool:
		return json.Marshal(d.b)
	default:
		return json.Marshal(d.s)
	}
}

func (d *DetailValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*d = String(v)
	case bool:
		*d = Bool(v)
	case float64:
		if v == float64(int(v)) {
			*d = Int(int(v))
		} else {
			*d = Float(v)
		}
	default:
		return fmt.Errorf("unsupported detail value %s", string(data))
	}
	return nil
}

// MarshalYAML renders the bare scalar.
func (d DetailValue) MarshalYAML() (any, error) {
	switch d.kind {
	case DetailInt:
		return d.i, nil
	case DetailFloat:
		return d.f, nil
	case DetailBool:
		return d.b, nil
	default:
		return d.s, nil
	}
}
