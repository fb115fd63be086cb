package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is a capture time stored as fractional Unix seconds.
// A value decoded from an archive re-encodes to the exact same digits.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// Seconds returns the timestamp as fractional Unix seconds.
func (t Timestamp) Seconds() float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.raw != "" {
		return []byte(t.raw), nil
	}

	if t.IsZero() {
		return []byte("null"), nil
	}

	return strconv.AppendFloat(nil, t.Seconds(), 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are Unix seconds; strings
// are accepted as RFC 3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}

		*t = Timestamp{Time: parsed, raw: string(data)}

		return nil
	}

	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}

	whole, frac := math.Modf(secs)
	*t = Timestamp{
		Time: time.Unix(int64(whole), int64(frac*float64(time.Second))),
		raw:  string(data),
	}

	return nil
}
