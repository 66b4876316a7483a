package models

import (
	"strings"
	"time"
)

// RecurrenceSegment is one weekly time block of a batch schedule, e.g.
// "MON 17:00-18:00". A batch recurrence is an ordered list of segments.
type RecurrenceSegment struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// dayCodes maps 3-letter day tokens to Go weekdays.
var dayCodes = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// Weekday resolves the segment's day token. The bool is false for tokens
// that are not a recognised day.
func (s RecurrenceSegment) Weekday() (time.Weekday, bool) {
	wd, ok := dayCodes[normalizeDayToken(s.Day)]
	return wd, ok
}

// ParseRecurrence splits a stored recurrence string into segments.
// Segments are comma separated; each is "DAY HH:MM-HH:MM". Malformed
// segments are dropped silently because legacy rows contain partial data
// and callers must still render whatever parses.
func ParseRecurrence(raw string) []RecurrenceSegment {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	segments := make([]RecurrenceSegment, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		day := normalizeDayToken(fields[0])
		if _, ok := dayCodes[day]; !ok {
			continue
		}
		times := strings.SplitN(fields[1], "-", 2)
		if len(times) != 2 || times[0] == "" || times[1] == "" {
			continue
		}
		segments = append(segments, RecurrenceSegment{Day: day, Start: times[0], End: times[1]})
	}
	return segments
}

// FormatRecurrence serialises segments back to the persistence encoding.
func FormatRecurrence(segments []RecurrenceSegment) string {
	if len(segments) == 0 {
		return ""
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Day+" "+seg.Start+"-"+seg.End)
	}
	return strings.Join(parts, ", ")
}

// NormalizeRecurrence round-trips a raw recurrence through the parser,
// discarding malformed segments and normalising separators.
func NormalizeRecurrence(raw string) string {
	return FormatRecurrence(ParseRecurrence(raw))
}

// ExpectedSessionCount counts the sessions the segments imply within the
// inclusive [from, to] date range. An inverted range yields zero.
func ExpectedSessionCount(segments []RecurrenceSegment, from, to time.Time) int {
	from = dateOnly(from)
	to = dateOnly(to)
	if from.After(to) {
		return 0
	}
	total := 0
	for _, seg := range segments {
		wd, ok := seg.Weekday()
		if !ok {
			continue
		}
		total += countWeekday(wd, from, to)
	}
	return total
}

// RecurrenceMatchesDay reports whether the raw recurrence mentions the given
// weekday. It tolerates both 3-letter codes and full day names, in any case.
func RecurrenceMatchesDay(raw string, day time.Weekday) bool {
	code := strings.ToUpper(day.String())[:3]
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if normalizeDayToken(fields[0]) == code {
			return true
		}
	}
	return false
}

func normalizeDayToken(token string) string {
	token = strings.ToUpper(strings.TrimSpace(token))
	if len(token) > 3 {
		token = token[:3]
	}
	return token
}

func countWeekday(wd time.Weekday, from, to time.Time) int {
	days := int(to.Sub(from).Hours()/24) + 1
	count := days / 7
	offset := (int(wd) - int(from.Weekday()) + 7) % 7
	if offset < days%7 {
		count++
	}
	return count
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
