package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestFormatTime(t *testing.T) {
	ts := time.Date(2023, 5, 10, 20, 2, 28, 328142999, time.UTC)
	gt.Equal(t, model.FormatTime(ts), "2023-05-10T20:02:28.328142")

	// Non-UTC instants are rendered in UTC
	jst := time.FixedZone("JST", 9*60*60)
	gt.Equal(t, model.FormatTime(ts.In(jst)), "2023-05-10T20:02:28.328142")
}

func TestParseTimeRoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2023, 5, 10, 20, 2, 28, 328142000, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 999999000, time.UTC),
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Now().Truncate(time.Microsecond),
	}

	for _, ts := range instants {
		parsed, err := model.ParseTime(model.FormatTime(ts))
		gt.NoError(t, err)
		gt.True(t, parsed.Equal(ts))
		gt.Equal(t, parsed.Location(), time.UTC)
	}
}

func TestParseTimeLegacy(t *testing.T) {
	legacy, err := model.ParseTime("2021-01-01 12:00:00.000000")
	gt.NoError(t, err)

	canonical, err := model.ParseTime("2021-01-01T12:00:00.000000")
	gt.NoError(t, err)

	gt.True(t, legacy.Equal(canonical))
}

func TestParseTimeShortFraction(t *testing.T) {
	testCases := map[string]time.Time{
		"2023-05-10T00:00:00.5":      time.Date(2023, 5, 10, 0, 0, 0, 500000000, time.UTC),
		"2023-05-10T00:00:00.123":    time.Date(2023, 5, 10, 0, 0, 0, 123000000, time.UTC),
		"2023-05-10 00:00:00.00001":  time.Date(2023, 5, 10, 0, 0, 0, 10000, time.UTC),
		"2023-05-10T00:00:00.000001": time.Date(2023, 5, 10, 0, 0, 0, 1000, time.UTC),
	}

	for value, want := range testCases {
		t.Run(value, func(t *testing.T) {
			got, err := model.ParseTime(value)
			gt.NoError(t, err)
			gt.True(t, got.Equal(want))
		})
	}

	micros, err := model.TimeToMicros("2023-05-10T00:00:00.5")
	gt.NoError(t, err)
	gt.Equal(t, micros, time.Date(2023, 5, 10, 0, 0, 0, 500000000, time.UTC).UnixMicro())
}

func TestParseTimeInvalid(t *testing.T) {
	testCases := []string{
		"",
		"yesterday",
		"2021-01-01",
		"2021-01-01T12:00:00",
		"2021-01-01T12:00:00.",
		"2021-01-01T12:00:00.12a",
		"2021-01-01T12:00:00.1234567",
		"2021/01/01 12:00:00.000000",
	}

	for _, tc := range testCases {
		t.Run(tc, func(t *testing.T) {
			_, err := model.ParseTime(tc)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidArgument))
		})
	}
}

func TestTimeToMicros(t *testing.T) {
	micros, err := model.TimeToMicros("1970-01-01T00:00:01.000001")
	gt.NoError(t, err)
	gt.Equal(t, micros, int64(1000001))

	micros, err = model.TimeToMicros("2023-05-10T20:02:28.328142")
	gt.NoError(t, err)
	gt.Equal(t, micros, time.Date(2023, 5, 10, 20, 2, 28, 328142000, time.UTC).UnixMicro())

	// Ordering of micros follows ordering of timestamps across the format change
	older, err := model.TimeToMicros("2023-05-10 23:59:59.999999")
	gt.NoError(t, err)
	newer, err := model.TimeToMicros("2023-05-11T00:00:00.000000")
	gt.NoError(t, err)
	gt.True(t, older < newer)
}
