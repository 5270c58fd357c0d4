package timecode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a timecode that could not be turned into seconds.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timecode %q: %s", e.Input, e.Reason)
}

// Parse converts a plain seconds value ("62.5") or colon separated fields
// read most significant first ("1:02:03", "02:03.25") into seconds.
// A comma decimal separator is accepted the way SRT cues write it.
func Parse(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, &ParseError{Input: value, Reason: "empty value"}
	}

	var seconds float64
	for _, field := range strings.Split(trimmed, ":") {
		field = strings.ReplaceAll(strings.TrimSpace(field), ",", ".")
		if field == "" {
			return 0, &ParseError{Input: value, Reason: "empty field"}
		}
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, &ParseError{Input: value, Reason: fmt.Sprintf("field %q is not numeric", field)}
		}
		seconds = seconds*60 + n
	}

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, &ParseError{Input: value, Reason: "not a finite number"}
	}
	return seconds, nil
}

// ParseValue parses a JSON timecode that may have arrived as a string or a number.
func ParseValue(v Value) (float64, error) {
	if !v.Present() {
		return 0, &ParseError{Input: "", Reason: "missing value"}
	}
	if v.invalid {
		return 0, &ParseError{Input: v.raw, Reason: "not a string or number"}
	}
	if v.isNumber {
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return 0, &ParseError{Input: v.raw, Reason: "not a finite number"}
		}
		return v.number, nil
	}
	return Parse(v.raw)
}

// Format renders seconds as HH:MM:SS. Fractions are floored and negative
// input is clamped to zero; the hour field grows past two digits as needed.
func Format(seconds float64) string {
	total := wholeSeconds(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatShort renders seconds as M:SS, or H:MM:SS once the value reaches an hour.
func FormatShort(seconds float64) string {
	total := wholeSeconds(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func wholeSeconds(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if math.IsInf(seconds, 1) || seconds > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(math.Floor(seconds))
}

// Value is a JSON scalar holding either a timecode string or a number of seconds.
type Value struct {
	raw      string
	number   float64
	isNumber bool
	present  bool
	invalid  bool
}

// Seconds builds a numeric Value.
func Seconds(n float64) Value {
	return Value{raw: strconv.FormatFloat(n, 'f', -1, 64), number: n, isNumber: true, present: true}
}

// String builds a textual Value.
func String(s string) Value {
	return Value{raw: s, present: true}
}

// Present reports whether the value was supplied at all.
func (v Value) Present() bool {
	return v.present
}

// Raw returns the value as it was received.
func (v Value) Raw() string {
	return v.raw
}

// UnmarshalJSON accepts strings, numbers and null. Any other JSON value is
// kept as present but invalid, so ParseValue fails for that entry alone.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*v = Value{raw: string(data), present: true, invalid: true}
		return nil
	}
	*v = Seconds(n)
	return nil
}

// MarshalJSON writes numbers as numbers and everything else as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	if v.invalid {
		return []byte(v.raw), nil
	}
	if v.isNumber {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.raw)
}
