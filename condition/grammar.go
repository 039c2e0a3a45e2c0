package condition

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses the `<number><unit>` grammar used by EveryPeriod,
// where unit is one of d (day), h (hour), m (minute), or s (second).
// This mirrors chrono's own field-parsing style: strip the suffix, validate
// the remainder is numeric, and wrap errors with a stable sentinel.
func ParseDuration(expr string) (time.Duration, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty expression", ErrInvalidDuration)
	}

	unit := expr[len(expr)-1]
	var scale time.Duration
	switch unit {
	case 'd', 'D':
		scale = 24 * time.Hour
	case 'h', 'H':
		scale = time.Hour
	case 'm', 'M':
		scale = time.Minute
	case 's', 'S':
		scale = time.Second
	default:
		return 0, fmt.Errorf("%w: unrecognized unit in %q (expected d|h|m|s)", ErrInvalidDuration, expr)
	}

	numPart := expr[:len(expr)-1]
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative number", ErrInvalidDuration, numPart)
	}

	return time.Duration(n * float64(scale)), nil
}

// parsedClock is the result of parsing a clock expression.
type parsedClock struct {
	hour, minute, second int
}

// ParseClock parses H, H:M, or H:M:S into an hour/minute/second triple.
func ParseClock(expr string) (hour, minute, second int, err error) {
	parts := strings.Split(strings.TrimSpace(expr), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, expr)
	}

	vals := make([]int, 3)
	for i, p := range parts {
		v, convErr := strconv.Atoi(strings.TrimSpace(p))
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidClock, expr, convErr)
		}
		vals[i] = v
	}

	hour, minute, second = vals[0], vals[1], vals[2]
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidClock, expr)
	}
	return hour, minute, second, nil
}

// weekdayNames maps full and 3-letter (case-insensitive) English weekday
// names to an index where Mon=0...Sun=6, as required by spec §4.1.
var weekdayNames = map[string]int{
	"monday": 0, "mon": 0,
	"tuesday": 1, "tue": 1,
	"wednesday": 2, "wed": 2,
	"thursday": 3, "thu": 3,
	"friday": 4, "fri": 4,
	"saturday": 5, "sat": 5,
	"sunday": 6, "sun": 6,
}

// ParseWeekday parses a full or 3-letter English weekday name (case
// insensitive) into an index where Mon=0...Sun=6.
func ParseWeekday(name string) (int, error) {
	idx, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
	}
	return idx, nil
}

// mondayZeroIndex converts Go's time.Weekday (Sun=0...Sat=6) into the
// spec's Mon=0...Sun=6 convention.
func mondayZeroIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// TimepointField names a component of a time.Time comparable by
// AfterTimepoint/BeforeTimepoint.
type TimepointField string

// Valid timepoint fields, per spec §4.1.
const (
	FieldYear   TimepointField = "year"
	FieldMonth  TimepointField = "month"
	FieldDay    TimepointField = "day"
	FieldHour   TimepointField = "hour"
	FieldMinute TimepointField = "minute"
	FieldSecond TimepointField = "second"
)

func fieldValue(t time.Time, f TimepointField) (int, error) {
	switch f {
	case FieldYear:
		return t.Year(), nil
	case FieldMonth:
		return int(t.Month()), nil
	case FieldDay:
		return t.Day(), nil
	case FieldHour:
		return t.Hour(), nil
	case FieldMinute:
		return t.Minute(), nil
	case FieldSecond:
		return t.Second(), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidField, f)
	}
}
