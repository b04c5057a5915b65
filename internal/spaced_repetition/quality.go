package spaced_repetition

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Quality is the learner's self-rated recall on the SM-2 0-5 scale.
// Only the four values bound to review buttons are valid.
type Quality int

const (
	// Total recall failure
	QualityAgain Quality = 0
	// Recalled with significant difficulty
	QualityHard Quality = 3
	// Recalled correctly
	QualityGood Quality = 4
	// Recalled effortlessly
	QualityEasy Quality = 5
)

// Qualities lists the valid ratings in button order.
var Qualities = []Quality{QualityAgain, QualityHard, QualityGood, QualityEasy}

var qualityNames = map[Quality]string{
	QualityAgain: "Again",
	QualityHard:  "Hard",
	QualityGood:  "Good",
	QualityEasy:  "Easy",
}

var (
	_ fmt.Stringer             = Quality(0)
	_ json.Unmarshaler         = (*Quality)(nil)
	_ encoding.TextMarshaler   = Quality(0)
	_ encoding.TextUnmarshaler = (*Quality)(nil)
)

// IsValid reports whether q is one of Again, Hard, Good or Easy.
func (q Quality) IsValid() bool {
	_, ok := qualityNames[q]
	return ok
}

// IsSuccess reports whether q counts as a successful recall.
func (q Quality) IsSuccess() bool {
	return q.IsValid() && q != QualityAgain
}

// String returns the button name, or "Quality(n)" for invalid values.
func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality accepts a button name (case-insensitive) or its numeric value.
func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		q := Quality(n)
		if !q.IsValid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidQuality, n)
		}
		return q, nil
	}
	for q, name := range qualityNames {
		if strings.EqualFold(name, s) {
			return q, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	if !q.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	return []byte(qualityNames[q]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(text []byte) error {
	v, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// UnmarshalJSON accepts either a JSON string ("Good") or a number (4).
func (q *Quality) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		return q.UnmarshalText([]byte(strconv.Itoa(n)))
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuality, data)
	}
	return q.UnmarshalText([]byte(s))
}
