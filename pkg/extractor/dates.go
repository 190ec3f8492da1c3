package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// DefaultLocation is the fixed offset assumed when a date carries no zone (UTC-3).
var DefaultLocation = time.FixedZone("UTC-3", -3*60*60)

var (
	isoDatePattern        = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})`)
	numericDatePattern    = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})\b`)
	textDatePattern       = regexp.MustCompile(`\b(\d{1,2})\s+(?:de\s+)?([a-z]+)\.?,?\s+(?:de\s+|del\s+)?(\d{4})\b`)
	timePattern           = regexp.MustCompile(`(\d{1,2})(?::|h|\.)(\d{2})(?:[:.](\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	hourOnlyPattern       = regexp.MustCompile(`\b(\d{1,2})\s*(hs|hrs|h|am|pm|a\.m\.|p\.m\.)(?:\W|$)`)
	digitPattern          = regexp.MustCompile(`\d`)
	namedOffsetPattern    = regexp.MustCompile(`\b(?:utc|gmt)\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?`)
	numericOffsetPattern  = regexp.MustCompile(`(?:^|\s)([+-])(\d{2}):?(\d{2})\s*$`)
	attachedOffsetPattern = regexp.MustCompile(`((?:t\d{1,2}:\d{2}(?::\d{2})?|\d{1,2}:\d{2}:\d{2})(?:\.\d+)?)(?:([+-])(\d{2}):?(\d{2})|(z))\b`)
	utcPattern            = regexp.MustCompile(`\b(?:utc|gmt)\b`)
)

var monthNames = map[string]time.Month{
	"enero": time.January, "ene": time.January, "january": time.January, "jan": time.January,
	"febrero": time.February, "feb": time.February, "february": time.February,
	"marzo": time.March, "mar": time.March, "march": time.March,
	"abril": time.April, "abr": time.April, "april": time.April, "apr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June, "june": time.June,
	"julio": time.July, "jul": time.July, "july": time.July,
	"agosto": time.August, "ago": time.August, "august": time.August, "aug": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "set": time.September, "september": time.September, "sept": time.September,
	"octubre": time.October, "oct": time.October, "october": time.October,
	"noviembre": time.November, "nov": time.November, "november": time.November,
	"diciembre": time.December, "dic": time.December, "december": time.December, "dec": time.December,
}

// ParseDate reads a day-first date with an optional time. Numeric dates are never
// read month-first. loc applies unless the value names its own offset.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = DefaultLocation
	}
	s := normalizers.ApplyChain(value, "lowercase", "strip_accents", "collapse_whitespace")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	s, zone := extractOffset(s)
	if zone != nil {
		loc = zone
	}

	year, month, day, rest, err := parseDayMonthYear(s)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, second, err := parseClock(rest)
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(year, month, day, hour, minute, second, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("invalid calendar date %02d/%02d/%d", day, month, year)
	}
	return t, nil
}

func extractOffset(s string) (string, *time.Location) {
	if m := namedOffsetPattern.FindStringSubmatchIndex(s); m != nil {
		sign := s[m[2]:m[3]]
		hours, _ := strconv.Atoi(s[m[4]:m[5]])
		minutes := 0
		if m[6] >= 0 {
			minutes, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		return s[:m[0]] + s[m[1]:], fixedZone(sign, hours, minutes)
	}
	if m := numericOffsetPattern.FindStringSubmatchIndex(s); m != nil {
		sign := s[m[2]:m[3]]
		hours, _ := strconv.Atoi(s[m[4]:m[5]])
		minutes, _ := strconv.Atoi(s[m[6]:m[7]])
		return s[:m[0]], fixedZone(sign, hours, minutes)
	}
	// glued to an ISO clock: t10:00+02:00, 10:00:00z
	if m := attachedOffsetPattern.FindStringSubmatchIndex(s); m != nil {
		clock := s[m[2]:m[3]]
		if m[10] >= 0 {
			return s[:m[0]] + clock + s[m[1]:], time.UTC
		}
		sign := s[m[4]:m[5]]
		hours, _ := strconv.Atoi(s[m[6]:m[7]])
		minutes, _ := strconv.Atoi(s[m[8]:m[9]])
		return s[:m[0]] + clock + s[m[1]:], fixedZone(sign, hours, minutes)
	}
	if m := utcPattern.FindStringIndex(s); m != nil {
		return s[:m[0]] + s[m[1]:], time.UTC
	}
	return s, nil
}

func fixedZone(sign string, hours, minutes int) *time.Location {
	offset := hours*3600 + minutes*60
	name := fmt.Sprintf("UTC%s%d", sign, hours)
	if minutes != 0 {
		name = fmt.Sprintf("UTC%s%d:%02d", sign, hours, minutes)
	}
	if sign == "-" {
		offset = -offset
	}
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone(name, offset)
}

// parseDayMonthYear returns the date parts and the text after the date
func parseDayMonthYear(s string) (year int, month time.Month, day int, rest string, err error) {
	if m := isoDatePattern.FindStringSubmatchIndex(s); m != nil {
		year, _ = strconv.Atoi(s[m[2]:m[3]])
		mon, _ := strconv.Atoi(s[m[4]:m[5]])
		day, _ = strconv.Atoi(s[m[6]:m[7]])
		if mon < 1 || mon > 12 {
			return 0, 0, 0, "", fmt.Errorf("invalid month %d", mon)
		}
		return year, time.Month(mon), day, s[m[1]:], nil
	}

	if m := numericDatePattern.FindStringSubmatchIndex(s); m != nil {
		day, _ = strconv.Atoi(s[m[2]:m[3]])
		mon, _ := strconv.Atoi(s[m[4]:m[5]])
		yearText := s[m[6]:m[7]]
		year, _ = strconv.Atoi(yearText)
		if len(yearText) == 2 {
			year += 2000
		}
		if mon < 1 || mon > 12 {
			return 0, 0, 0, "", fmt.Errorf("invalid month %d", mon)
		}
		return year, time.Month(mon), day, s[m[1]:], nil
	}

	for _, m := range textDatePattern.FindAllStringSubmatchIndex(s, -1) {
		mon, ok := monthNames[s[m[4]:m[5]]]
		if !ok {
			continue
		}
		day, _ = strconv.Atoi(s[m[2]:m[3]])
		year, _ = strconv.Atoi(s[m[6]:m[7]])
		return year, mon, day, s[m[1]:], nil
	}

	return 0, 0, 0, "", fmt.Errorf("no day-month-year date found")
}

// parseClock reads the first time of day in s. No digits at all means midnight;
// digits that do not read as a time are an error.
func parseClock(s string) (hour, minute, second int, err error) {
	var meridiem, matched string
	if m := timePattern.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			second, _ = strconv.Atoi(m[3])
		}
		meridiem, matched = m[4], m[0]
	} else if m := hourOnlyPattern.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		meridiem, matched = m[2], m[0]
	} else if digitPattern.MatchString(s) {
		return 0, 0, 0, fmt.Errorf("unrecognized time %q", strings.TrimSpace(s))
	} else {
		return 0, 0, 0, nil
	}

	switch strings.ReplaceAll(meridiem, ".", "") {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, fmt.Errorf("invalid time %s", strings.TrimSpace(matched))
	}
	return hour, minute, second, nil
}
