package media

import (
	"fmt"
	"regexp"
	"strconv"
)

// Timestamp represents a position in the source media
type Timestamp struct {
	Hours   int
	Minutes int
	Seconds int
}

// Accepted forms: MM:SS (minutes up to 59, optionally unpadded) and
// H:MM:SS (hours up to 19). The grammar rejects out-of-range components
// outright so the parser never sees them.
var (
	minSecRegex     = regexp.MustCompile(`^([0-5]?[0-9]):([0-5][0-9])$`)
	hourMinSecRegex = regexp.MustCompile(`^([0-1]?[0-9]):([0-5]?[0-9]):([0-5][0-9])$`)
)

// ParseTimestamp parses a timestamp string in MM:SS or H:MM:SS format
func ParseTimestamp(s string) (Timestamp, error) {
	if m := minSecRegex.FindStringSubmatch(s); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		return Timestamp{Minutes: minutes, Seconds: seconds}, nil
	}

	if m := hourMinSecRegex.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.Atoi(m[3])
		return Timestamp{Hours: hours, Minutes: minutes, Seconds: seconds}, nil
	}

	return Timestamp{}, fmt.Errorf("invalid timestamp format %q: expected MM:SS or H:MM:SS", s)
}

// String returns the timestamp in MM:SS or H:MM:SS format
func (t Timestamp) String() string {
	if t.Hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
	}
	return fmt.Sprintf("%02d:%02d", t.Minutes, t.Seconds)
}

// TotalSeconds returns the timestamp as total seconds
func (t Timestamp) TotalSeconds() int {
	return t.Hours*3600 + t.Minutes*60 + t.Seconds
}

// Before returns true if t is before other
func (t Timestamp) Before(other Timestamp) bool {
	return t.TotalSeconds() < other.TotalSeconds()
}
