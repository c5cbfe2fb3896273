package tidisk

import (
	"fmt"
	"strings"
)

var (
	// blankTimestamp has the same width as a rendered timestamp.
	blankTimestamp = strings.Repeat(" ", 17)
)

// Timestamp is the packed four-byte date/time stored in records. The time word
// is hour:5 minute:6 second/2:5 and the date word is year:7 month:4 day:5.
type Timestamp struct {
	TimeWord uint16
	DateWord uint16
}

// IsZero indicates that no timestamp was recorded.
func (ts Timestamp) IsZero() bool {
	return ts.TimeWord == 0 && ts.DateWord == 0
}

func (ts Timestamp) Hour() int {
	return int(ts.TimeWord >> 11)
}

func (ts Timestamp) Minute() int {
	return int(ts.TimeWord>>5) & 0x3f
}

func (ts Timestamp) Second() int {
	return int(ts.TimeWord&0x1f) * 2
}

// Year is the two-digit year as stored.
func (ts Timestamp) Year() int {
	return int(ts.DateWord >> 9)
}

func (ts Timestamp) Month() int {
	return int(ts.DateWord>>5) & 0x0f
}

func (ts Timestamp) Day() int {
	return int(ts.DateWord & 0x1f)
}

// String renders "YY-MM-DD HH:MM:SS", or blanks of the same width if no
// timestamp was recorded.
func (ts Timestamp) String() string {
	if ts.IsZero() == true {
		return blankTimestamp
	}

	return fmt.Sprintf("%02d-%02d-%02d %02d:%02d:%02d", ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second())
}
