package profile

import (
	"bytes"
	"encoding/json"
	"time"
)

// Value is a single side-channel sample. Valid is false for a missing sample,
// which is distinct from a zero reading.
type Value[T any] struct {
	V     T
	Valid bool
}

// Some wraps a present sample
func Some[T any](v T) Value[T] {
	return Value[T]{V: v, Valid: true}
}

// None returns a missing sample
func None[T any]() Value[T] {
	return Value[T]{}
}

// MarshalJSON encodes a missing sample as null
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as a missing sample
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value[T]{}
		return nil
	}
	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*v = Value[T]{V: inner, Valid: true}
	return nil
}

// Channel is a per-point auxiliary measurement array aligned positionally with
// the point sequence it was recorded against.
type Channel[T any] []Value[T]

// ValidCount returns the number of present samples
func (c Channel[T]) ValidCount() int {
	n := 0
	for _, v := range c {
		if v.Valid {
			n++
		}
	}
	return n
}

// Complete reports whether every sample is present
func (c Channel[T]) Complete() bool {
	return c.ValidCount() == len(c)
}

// Floats builds a fully-populated numeric channel
func Floats(values []float64) Channel[float64] {
	ch := make(Channel[float64], len(values))
	for i, v := range values {
		ch[i] = Some(v)
	}
	return ch
}

// FromPointers builds a numeric channel where nil entries are missing samples
func FromPointers(values []*float64) Channel[float64] {
	ch := make(Channel[float64], len(values))
	for i, v := range values {
		if v != nil {
			ch[i] = Some(*v)
		}
	}
	return ch
}

// Times builds a timestamp channel; zero times are treated as missing
func Times(values []time.Time) Channel[time.Time] {
	ch := make(Channel[time.Time], len(values))
	for i, v := range values {
		if !v.IsZero() {
			ch[i] = Some(v)
		}
	}
	return ch
}
