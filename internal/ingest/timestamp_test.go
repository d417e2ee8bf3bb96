package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	cases := []string{
		"2026-08-29T10:15:30.5Z",
		"2026-08-29T10:15:30Z",
		"2026-08-29T10:15:30+02:00",
		"2026-08-29 10:15:30",
		"2026-08-29",
	}
	for _, c := range cases {
		ts, err := ParseTimestamp(c)
		require.NoError(t, err, c)
		assert.Equal(t, 2026, ts.Year(), c)
		assert.Equal(t, time.August, ts.Month(), c)
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)

	_, err = ParseTimestamp("")
	assert.Error(t, err)
}
