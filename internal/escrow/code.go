package escrow

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	codePrefix = "ESC-"
	// MaxCodeSequence is the last sequence number available in a year.
	MaxCodeSequence = 999
)

var codePattern = regexp.MustCompile(`^ESC-(\d{4})-(\d{3})$`)

// FormatCode renders the human-readable escrow code ESC-YYYY-NNN.
func FormatCode(year, seq int) (string, error) {
	if year < 1000 || year > 9999 {
		return "", InvalidInput(fmt.Sprintf("escrow code year %d out of range", year))
	}
	if seq < 1 || seq > MaxCodeSequence {
		return "", InvalidInput(fmt.Sprintf("escrow code sequence %d out of range", seq))
	}
	return fmt.Sprintf("%s%04d-%03d", codePrefix, year, seq), nil
}

// ParseCode splits a code into its year and sequence.
func ParseCode(code string) (year, seq int, err error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, 0, InvalidInput(fmt.Sprintf("malformed escrow code %q", code))
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	if seq < 1 {
		return 0, 0, InvalidInput(fmt.Sprintf("malformed escrow code %q", code))
	}
	return year, seq, nil
}

// IsCode reports whether ref looks like an escrow code rather than an id.
func IsCode(ref string) bool {
	_, _, err := ParseCode(ref)
	return err == nil
}
