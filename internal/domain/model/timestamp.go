package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp wraps time.Time to bridge the server's wire format. The server
// emits timestamps as fractional epoch seconds; some tooling emits RFC 3339
// strings. Both decode into a Timestamp, and it marshals back as epoch
// seconds.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

// MarshalJSON encodes the timestamp as fractional epoch seconds.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("0"), nil
	}
	sec := float64(ts.UnixNano()) / float64(time.Second)
	return []byte(strconv.FormatFloat(sec, 'f', -1, 64)), nil
}

// UnmarshalJSON decodes fractional epoch seconds, integer epoch seconds, or
// an RFC 3339 string.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		ts.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode timestamp string: %w", err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		ts.Time = t
		return nil
	}

	sec, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", data, err)
	}
	if sec == 0 {
		ts.Time = time.Time{}
		return nil
	}
	whole, frac := math.Modf(sec)
	ts.Time = time.Unix(int64(whole), int64(frac*float64(time.Second)))
	return nil
}
