// Package timeutil normalizes the timestamp encodings found in Teams exports:
// ISO-8601 strings (with or without fractional seconds and a trailing Z),
// epoch seconds, and epoch milliseconds.
package timeutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/gcanale/tmx/internal/rawjson"
)

// Values above this are taken to be epoch milliseconds.
const millisThreshold = 9999999999

const (
	isoFracLayout = "2006-01-02T15:04:05.999999"
	isoLayout     = "2006-01-02T15:04:05"
	displayLayout = "2006-01-02 15:04:05"
)

// Epoch converts a raw timestamp value to integer seconds since the Unix
// epoch. Empty, zero, and unparseable values report false.
func Epoch(v rawjson.Value) (int64, bool) {
	if !v.Truthy() {
		return 0, false
	}
	if s, ok := isoCandidate(v); ok {
		t, err := parseISO(s)
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	}
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	if f > millisThreshold {
		f /= 1000
	}
	return int64(f), true
}

// Display converts a raw timestamp value to a "YYYY-MM-DD HH:MM:SS" UTC
// string. An ISO string that fails to parse degrades to its first 19
// characters with every T replaced by a space; any other failure returns
// the original value rendered as a string.
func Display(v rawjson.Value) string {
	if !v.Truthy() {
		return ""
	}
	if s, ok := isoCandidate(v); ok {
		t, err := parseISO(s)
		if err != nil {
			head := s
			if len(head) > 19 {
				head = head[:19]
			}
			return strings.ReplaceAll(head, "T", " ")
		}
		return t.Format(displayLayout)
	}
	f, ok := v.Float()
	if !ok {
		return v.Str()
	}
	if f > millisThreshold {
		f /= 1000
	}
	return time.Unix(int64(f), 0).UTC().Format(displayLayout)
}

// Duration parses both endpoints to second precision and formats the
// difference as HH:MM:SS. A negative or unparseable difference reports false.
func Duration(start, end rawjson.Value) (string, bool) {
	s, ok := endpointSeconds(start)
	if !ok || s == 0 {
		return "", false
	}
	e, ok := endpointSeconds(end)
	if !ok || e == 0 {
		return "", false
	}
	d := e - s
	if d < 0 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", d/3600, d%3600/60, d%60), true
}

func endpointSeconds(v rawjson.Value) (int64, bool) {
	if s, ok := isoCandidate(v); ok {
		t, err := parseISO(s)
		if err != nil {
			return 0, false
		}
		return t.Unix(), true
	}
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	if f > millisThreshold {
		f /= 1000
	}
	return int64(f), true
}

// isoCandidate reports whether the value is a string shaped like ISO-8601:
// it contains a T plus either a dash or a colon. The trailing Z, if any, is
// already stripped from the returned string.
func isoCandidate(v rawjson.Value) (string, bool) {
	s := v.Text()
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "T") || !(strings.Contains(s, "-") || strings.Contains(s, ":")) {
		return "", false
	}
	return strings.TrimRight(s, "Z"), true
}

// parseISO parses a Z-stripped ISO-8601 string as UTC. The fractional form
// looks at no more than 26 characters and the plain form at no more than 19;
// text beyond those widths (sub-microsecond digits, zone offsets) is ignored
// by construction rather than rejected.
func parseISO(s string) (time.Time, error) {
	if strings.Contains(s, ".") {
		if len(s) > 26 {
			s = s[:26]
		}
		return time.Parse(isoFracLayout, s)
	}
	if len(s) > 19 {
		s = s[:19]
	}
	return time.Parse(isoLayout, s)
}
