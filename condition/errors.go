package condition

import "errors"

// Errors returned while parsing the grammars in this package. These are the
// condition package's contribution to the module's ValidationError family
// (spec §7): a malformed duration, clock, or weekday string is a domain
// error, never a panic.
var (
	// ErrInvalidDuration is returned when a duration string does not match
	// the `<number><unit>` grammar (unit one of d|h|m|s).
	ErrInvalidDuration = errors.New("condition: invalid duration expression")
	// ErrInvalidClock is returned when a clock string does not match
	// H, H:M, or H:M:S.
	ErrInvalidClock = errors.New("condition: invalid clock expression")
	// ErrInvalidWeekday is returned when a weekday name is not recognized.
	ErrInvalidWeekday = errors.New("condition: invalid weekday name")
	// ErrInvalidField is returned when a timepoint comparison names a field
	// other than year, month, day, hour, minute, second.
	ErrInvalidField = errors.New("condition: invalid timepoint field")
)
