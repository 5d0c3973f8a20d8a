package model

import (
	"fmt"
	"math"
	"time"
)

const (
	// maxSerial1900 is the first serial at or beyond Gregorian year 10000
	maxSerial1900 = 2958466
	// maxSerial1904 is maxSerial1900 shifted to the 1904 epoch
	maxSerial1904 = maxSerial1900 - 1462
	// firstSerialAfterLeapBug is the serial of 1900-03-01 in the 1900 system
	firstSerialAfterLeapBug = 61
	secondsPerDay           = 86400
	microsPerDay            = secondsPerDay * 1e6
)

var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	// epoch1900Early is used before 1900-03-01 where the 1900 system counts
	// a non-existent 1900-02-29.
	epoch1900Early = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1904      = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	leapBugCutover = time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
)

// ValidSerial reports whether v is a date serial that maps to a date
// between the epoch and the end of year 9999.
func ValidSerial(v float64, date1904 bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return false
	}
	if date1904 {
		return v < maxSerial1904
	}
	return v < maxSerial1900
}

// SerialToTime converts a spreadsheet date serial into a UTC time rounded
// to the microsecond.
func SerialToTime(v float64, date1904 bool) (time.Time, error) {
	if !ValidSerial(v, date1904) {
		return time.Time{}, fmt.Errorf("invalid date serial %v", v)
	}
	epoch := epoch1900
	switch {
	case date1904:
		epoch = epoch1904
	case v < firstSerialAfterLeapBug:
		epoch = epoch1900Early
	}
	days := math.Floor(v)
	micros := math.Round((v - days) * microsPerDay)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(micros) * time.Microsecond), nil
}

// TimeToSerial converts t into a date serial using t's wall clock. Serials
// carry no zone, so SerialToTime returns the same wall clock in UTC: a time
// outside UTC keeps its clock reading but not its instant.
func TimeToSerial(t time.Time, date1904 bool) float64 {
	u := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	epoch := epoch1900
	switch {
	case date1904:
		epoch = epoch1904
	case u.Before(leapBugCutover):
		epoch = epoch1900Early
	}
	seconds := u.Unix() - epoch.Unix()
	return float64(seconds)/secondsPerDay + float64(u.Nanosecond())/(secondsPerDay*1e9)
}
