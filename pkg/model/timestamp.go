package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	// TimeFormat is the canonical textual form of a memory timestamp, e.g.
	// "2023-05-10T20:02:28.328142". Always UTC with microsecond precision.
	TimeFormat = "2006-01-02T15:04:05.000000"

	// legacyTimeFormat was used by old records before the "T" separator was
	// introduced. Kept readable, never written.
	legacyTimeFormat = "2006-01-02 15:04:05.000000"

	// Decoding accepts one to six fractional digits, e.g. "2023-05-10T00:00:00.5".
	parseTimeFormat       = "2006-01-02T15:04:05.999999"
	legacyParseTimeFormat = "2006-01-02 15:04:05.999999"
	maxFractionDigits     = 6
)

// FormatTime renders t in UTC as TimeFormat. Sub-microsecond digits are dropped.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime decodes a timestamp in TimeFormat, falling back to the legacy
// space-separated format. The fraction may be shortened to as few as one
// digit. The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	if n := fractionDigits(s); n < 1 || n > maxFractionDigits {
		return time.Time{}, goerr.Wrap(ErrInvalidArgument, "malformed timestamp",
			goerr.V("value", s),
			goerr.V("expected", TimeFormat),
			goerr.V("reason", "fractional seconds must have 1 to 6 digits"),
		)
	}

	t, err := time.Parse(parseTimeFormat, s)
	if err == nil {
		return t, nil
	}

	if legacy, legacyErr := time.Parse(legacyParseTimeFormat, s); legacyErr == nil {
		return legacy, nil
	}

	return time.Time{}, goerr.Wrap(ErrInvalidArgument, "malformed timestamp",
		goerr.V("value", s),
		goerr.V("expected", TimeFormat),
		goerr.V("reason", err.Error()),
	)
}

// fractionDigits counts the digits after the last '.', or -1 without one
func fractionDigits(s string) int {
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		return -1
	}
	for _, c := range s[idx+1:] {
		if c < '0' || c > '9' {
			return -1
		}
	}
	return len(s) - idx - 1
}

// TimeToMicros decodes s and returns it as microseconds since the Unix epoch.
// The vector index compares numbers, not date strings, so range filters use this.
func TimeToMicros(s string) (int64, error) {
	t, err := ParseTime(s)
	if err != nil {
		return 0, err
	}
	return t.UnixMicro(), nil
}
