package tidisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimestamp_String(t *testing.T) {
	ts := Timestamp{
		TimeWord: 10<<11 | 30<<5 | 5,
		DateWord: 23<<9 | 6<<5 | 15,
	}

	require.Equal(t, false, ts.IsZero())
	require.Equal(t, 10, ts.Hour())
	require.Equal(t, 30, ts.Minute())
	require.Equal(t, 10, ts.Second())
	require.Equal(t, 23, ts.Year())
	require.Equal(t, 6, ts.Month())
	require.Equal(t, 15, ts.Day())

	require.Equal(t, "23-06-15 10:30:10", ts.String())
}

func TestTimestamp_DateOnly(t *testing.T) {
	ts := Timestamp{
		DateWord: 23<<9 | 6<<5 | 15,
	}

	require.Equal(t, "23-06-15 00:00:00", ts.String())
}

func TestTimestamp_Zero(t *testing.T) {
	ts := Timestamp{}

	require.Equal(t, true, ts.IsZero())
	require.Equal(t, "                 ", ts.String())
}
