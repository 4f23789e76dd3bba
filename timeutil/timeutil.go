// Package timeutil converts between local-time encoded strings and Unix
// timestamps. All transit data in this project is expressed in the
// Europe/Paris timezone; the helpers here resolve the correct UTC offset
// per calendar date so DST transitions do not shift departures by an hour.
package timeutil

import (
	"strconv"
	"time"
)

// DefaultZone is the IANA timezone all schedule and feed times refer to.
const DefaultZone = "Europe/Paris"

// standardOffset is the fallback offset (CET, no DST) used when the
// timezone database is unavailable.
const standardOffset = 3600

var parisLocation *time.Location

func init() {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		loc = time.FixedZone("CET", standardOffset)
	}
	parisLocation = loc
}

// Location returns the shared Europe/Paris location (or the CET fallback).
func Location() *time.Location {
	return parisLocation
}

// ParseLocalTime parses a local datetime encoded as YYYYMMDDTHHMMSS (the
// separator is optional) and returns the corresponding Unix timestamp.
// The UTC offset is resolved at noon of the encoded calendar date, which
// sidesteps the ambiguous wall-clock hours around DST transitions.
// Malformed or too-short input returns 0; callers treat 0 as "unknown".
func ParseLocalTime(s string) int64 {
	if len(s) == 15 && s[8] == 'T' {
		s = s[:8] + s[9:]
	}
	if len(s) < 14 {
		return 0
	}
	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return 0
	}
	month, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0
	}
	day, err := strconv.Atoi(s[6:8])
	if err != nil {
		return 0
	}
	hour, err := strconv.Atoi(s[8:10])
	if err != nil {
		return 0
	}
	minute, err := strconv.Atoi(s[10:12])
	if err != nil {
		return 0
	}
	second, err := strconv.Atoi(s[12:14])
	if err != nil {
		return 0
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return 0
	}
	offset := offsetForDate(year, time.Month(month), day)
	utc := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return utc.Unix() - int64(offset)
}

// offsetForDate returns the UTC offset in effect at noon of the given
// local calendar date. Noon is never inside a DST transition window.
func offsetForDate(year int, month time.Month, day int) int {
	_, offset := time.Date(year, month, day, 12, 0, 0, 0, parisLocation).Zone()
	return offset
}

// LocalMidnight returns the Unix timestamp of 00:00:00 local time for the
// calendar day containing now.
func LocalMidnight(now time.Time) int64 {
	local := now.In(parisLocation)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, parisLocation).Unix()
}

// ServiceDate formats the local calendar day containing now as YYYYMMDD,
// matching the start_date encoding used by GTFS-RT trip descriptors.
func ServiceDate(now time.Time) string {
	return now.In(parisLocation).Format("20060102")
}
