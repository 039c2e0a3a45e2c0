// Package textutils holds small string/rune constants shared across the
// other packages so that parsing code does not repeat string literals.
package textutils

const (
	// EmptyStr is the empty string.
	EmptyStr = ""
	// NewLineString is a single newline.
	NewLineString = "\n"
	// WhiteSpaceStr is a single space.
	WhiteSpaceStr = " "
	// ForwardSlashStr is "/".
	ForwardSlashStr = "/"
	// PeriodStr is ".".
	PeriodStr = "."
	// ColonStr is ":".
	ColonStr = ":"
	// SemiColonStr is ";".
	SemiColonStr = ";"
	// EqualStr is "=".
	EqualStr = "="
	// CloseBraceStr is "}".
	CloseBraceStr = "}"
	// OpenBraceStr is "{".
	OpenBraceStr = "{"
	// CommaStr is ",".
	CommaStr = ","
	// PipeStr is "|".
	PipeStr = "|"
	// AmpersandStr is "&".
	AmpersandStr = "&"
)

const (
	// ForwardSlashChar is '/'.
	ForwardSlashChar = '/'
	// BackSlashChar is '\\'.
	BackSlashChar = '\\'
	// OpenBraceChar is '{'.
	OpenBraceChar = '{'
	// CloseBraceChar is '}'.
	CloseBraceChar = '}'
	// EqualChar is '='.
	EqualChar = '='
	// HashChar is '#'.
	HashChar = '#'
	// DollarChar is '$'.
	DollarChar = '$'
	// ColonChar is ':'.
	ColonChar = ':'
)
