package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnixTime is an epoch-seconds timestamp as the API reports it. The API is
// inconsistent about quoting, so both 1472671877 and "1472671877" decode.
type UnixTime int64

// UnmarshalJSON implements json.Unmarshaler.
func (u *UnixTime) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*u = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decode unix time %s: %w", data, err)
	}
	*u = UnixTime(f)
	return nil
}

// Time returns u as a UTC time, or the zero time when unset.
func (u UnixTime) Time() time.Time {
	return FromUnix(int64(u))
}

// Flag is a boolean the API encodes as the strings "true" and "false".
type Flag bool

// UnmarshalJSON implements json.Unmarshaler. Anything but true or "true"
// decodes as false.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode flag: %w", err)
	}
	switch b := v.(type) {
	case bool:
		*f = Flag(b)
	case string:
		*f = b == "true"
	default:
		*f = false
	}
	return nil
}

// MarshalJSON encodes f the way the API reports it.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

// Identifier is an opaque id that the API reports either as a string or as
// a number.
type Identifier string

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = Identifier(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode identifier %s: %w", data, err)
	}
	*id = Identifier(n.String())
	return nil
}
