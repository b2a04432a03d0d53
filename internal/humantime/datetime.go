// Package humantime parses the free-form datetime and duration strings
// Discord slash-command users type, grounded on
// original_source/src/commands/arguments/{human_datetime,human_duration}.rs.
package humantime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ratingxchange/pkg/apperror"
)

const (
	DateTimeExample1 = "2023-06-24 15:33:40 UTC+7"
	DateTimeExample2 = "15:33"
)

var (
	dateTokenRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	timeTokenRe = regexp.MustCompile(`^(\d{2}):(\d{2})(:(\d{2}))?$`)
	offsetRe    = regexp.MustCompile(`^UTC(([+-])(\d{1,2})(:(\d{2}))?)?$`)
)

// civilDate is a calendar date with no time-of-day or zone attached.
type civilDate struct {
	year, month, day int
}

// civilTime is a time-of-day with no date or zone attached.
type civilTime struct {
	hour, minute, second int
}

// DateTime is the parsed, unresolved shape of a user-typed datetime: any
// combination of a date, a time-of-day, and a UTC offset, at least one of
// date or time present.
type DateTime struct {
	date   *civilDate
	clock  *civilTime
	offset *time.Duration // nil means "not specified"
}

func invalidDateTime(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return apperror.NewUser(apperror.CodeInvalidArgument, fmt.Sprintf(
		"%s\nDatetime examples: `%s`, `%s`.", msg, DateTimeExample1, DateTimeExample2))
}

// ParseDateTime parses s into a DateTime. Recognized tokens, in any
// whitespace-separated order: a date (YYYY-MM-DD), a time (HH:MM or
// HH:MM:SS), and a UTC offset (UTC, UTC+H, UTC-H:MM, ...). Each kind may
// appear at most once, and at least one of date or time must be present.
func ParseDateTime(s string) (DateTime, error) {
	var dt DateTime

	for _, token := range strings.Fields(s) {
		switch {
		case dateTokenRe.MatchString(token):
			if dt.date != nil {
				return DateTime{}, invalidDateTime("Duplicate date: `%s`.", token)
			}
			m := dateTokenRe.FindStringSubmatch(token)
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			if month < 1 || month > 12 {
				return DateTime{}, invalidDateTime("Invalid month: `%d`.", month)
			}
			if !validDay(year, month, day) {
				return DateTime{}, invalidDateTime("Invalid date: `%s`.", token)
			}
			d := civilDate{year, month, day}
			dt.date = &d

		case timeTokenRe.MatchString(token):
			if dt.clock != nil {
				return DateTime{}, invalidDateTime("Duplicate time: `%s`.", token)
			}
			m := timeTokenRe.FindStringSubmatch(token)
			hour, _ := strconv.Atoi(m[1])
			minute, _ := strconv.Atoi(m[2])
			second := 0
			if m[4] != "" {
				second, _ = strconv.Atoi(m[4])
			}
			if hour > 23 || minute > 59 || second > 59 {
				return DateTime{}, invalidDateTime("Invalid time: `%s`.", token)
			}
			c := civilTime{hour, minute, second}
			dt.clock = &c

		case offsetRe.MatchString(token):
			if dt.offset != nil {
				return DateTime{}, invalidDateTime("Duplicate UTC offset: `%s`.", token)
			}
			m := offsetRe.FindStringSubmatch(token)
			var off time.Duration
			if m[1] != "" {
				sign := 1
				if m[2] == "-" {
					sign = -1
				}
				hour, _ := strconv.Atoi(m[3])
				minute := 0
				if m[5] != "" {
					minute, _ = strconv.Atoi(m[5])
				}
				off = time.Duration(sign) * (time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
			}
			dt.offset = &off

		default:
			return DateTime{}, invalidDateTime("Invalid token: `%s`.", token)
		}
	}

	if dt.date == nil && dt.clock == nil {
		return DateTime{}, invalidDateTime("Neither date nor time is provided.")
	}
	return dt, nil
}

func validDay(year, month, day int) bool {
	if day < 1 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Day() == day && int(d.Month()) == month
}

// Resolve combines the parsed fields with now to produce an absolute UTC
// instant. A bare time-of-day (no date) resolves to its next occurrence at
// or after now, in the given offset; per the wire format, an offset is
// required whenever no date was given (there is nothing else to anchor the
// time-of-day's day boundary to).
func (dt DateTime) Resolve(now time.Time) (time.Time, error) {
	if dt.date == nil && dt.offset == nil {
		return time.Time{}, invalidDateTime("A UTC offset is required when no date is given.")
	}

	var offset time.Duration
	if dt.offset != nil {
		offset = *dt.offset
	}
	loc := time.FixedZone("", int(offset.Seconds()))

	clock := civilTime{0, 0, 0}
	if dt.clock != nil {
		clock = *dt.clock
	}

	if dt.date != nil {
		d := *dt.date
		t := time.Date(d.year, time.Month(d.month), d.day, clock.hour, clock.minute, clock.second, 0, loc)
		return t.UTC(), nil
	}

	// No date: resolve to the next occurrence of this time-of-day.
	nowInLoc := now.In(loc)
	candidate := time.Date(nowInLoc.Year(), nowInLoc.Month(), nowInLoc.Day(),
		clock.hour, clock.minute, clock.second, 0, loc)
	if candidate.Before(nowInLoc) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.UTC(), nil
}
