package analytics

import (
	"encoding/json"
	"strings"
	"time"
)

// UnknownUser is the identity assigned to events recorded without a user.
const UnknownUser = "unknown"

// ActivityEvent is one recorded document edit. Events are append-only and never mutated.
type ActivityEvent struct {
	ID         string       `json:"id,omitempty"`
	DocID      string       `json:"doc_id"`
	UserEmail  string       `json:"user_email"`
	Action     string       `json:"action"`
	Timestamp  RawTimestamp `json:"timestamp"`
	WordsAdded int          `json:"words_added"`
}

// User returns the acting user, or UnknownUser when none was recorded.
func (e ActivityEvent) User() string {
	if e.UserEmail != "" {
		return e.UserEmail
	}
	return UnknownUser
}

// Words returns the word delta, never negative.
func (e ActivityEvent) Words() int {
	if e.WordsAdded < 0 {
		return 0
	}
	return e.WordsAdded
}

type rawKind uint8

const (
	rawMissing rawKind = iota
	rawTime
	rawNaiveTime
	rawString
)

// RawTimestamp is an event timestamp as it was stored: a native time, a
// zone-less wall clock time, an ISO-8601 string, or nothing at all.
// Use NormalizeTimestamp to turn it into a point in time.
type RawTimestamp struct {
	kind rawKind
	t    time.Time
	s    string
}

// TimestampOf wraps a time value that carries its own zone.
func TimestampOf(t time.Time) RawTimestamp {
	return RawTimestamp{kind: rawTime, t: t}
}

// NaiveTimestamp wraps a wall clock reading with no zone information.
// Its fields are interpreted as UTC.
func NaiveTimestamp(t time.Time) RawTimestamp {
	return RawTimestamp{kind: rawNaiveTime, t: t}
}

// TimestampString wraps a timestamp that arrived as text.
func TimestampString(s string) RawTimestamp {
	return RawTimestamp{kind: rawString, s: s}
}

// IsZero reports whether no timestamp was recorded.
func (r RawTimestamp) IsZero() bool { return r.kind == rawMissing }

// MarshalJSON writes normalized timestamps as RFC 3339 and everything else as
// the original string (or null).
func (r RawTimestamp) MarshalJSON() ([]byte, error) {
	if t, ok := NormalizeTimestamp(r); ok {
		return json.Marshal(t.UTC().Format(time.RFC3339Nano))
	}
	if r.kind == rawString {
		return json.Marshal(r.s)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a string or null. Strings are kept verbatim and only
// parsed on normalization, so malformed values do not fail decoding.
func (r *RawTimestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RawTimestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Numbers, objects and the like are treated as unparsable
		*r = TimestampString(string(data))
		return nil
	}
	*r = TimestampString(s)
	return nil
}

// isoLayouts are the ISO-8601 shapes accepted for string timestamps,
// most specific first. Layouts without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"20060102T150405",
	"20060102T1504",
	"2006-01-02",
}

// NormalizeTimestamp resolves a raw timestamp to a zone-aware time.
// ok is false when the value is missing or cannot be parsed.
func NormalizeTimestamp(r RawTimestamp) (t time.Time, ok bool) {
	switch r.kind {
	case rawTime:
		return r.t, true
	case rawNaiveTime:
		return time.Date(r.t.Year(), r.t.Month(), r.t.Day(),
			r.t.Hour(), r.t.Minute(), r.t.Second(), r.t.Nanosecond(), time.UTC), true
	case rawString:
		return parseISO(r.s)
	default:
		return time.Time{}, false
	}
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// A trailing Z is the same as +00:00
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
