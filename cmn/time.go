package cmn

import "time"

// ClientTimeFormat is the "YYYY-MM-DD HH:MM" layout used for every timestamp
// exposed to REST clients (spec: Timestamps are strings in this format where
// exposed to clients; internally times are kept as time.Time).
const ClientTimeFormat = "2006-01-02 15:04"

// FormatTime renders t in the client-facing layout.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ClientTimeFormat)
}

// ParseTime parses the client-facing layout; an empty string yields the zero
// time without error (an absent timestamp is not malformed input).
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(ClientTimeFormat, s)
}

// Now is the single indirection point for "current time" so tests can
// substitute a fixed clock; production code always calls cmn.Now().
var Now = time.Now
