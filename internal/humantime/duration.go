package humantime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"ratingxchange/pkg/apperror"
)

const (
	DurationExample1 = "1 day 3 hours 2 minutes 59 seconds"
	DurationExample2 = "1d 3h 2m 59s"
)

func invalidDuration(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return apperror.NewUser(apperror.CodeInvalidArgument, fmt.Sprintf(
		"%s\nDuration examples: `%s`, `%s`.", msg, DurationExample1, DurationExample2))
}

// ParseDuration parses s into a time.Duration. It accepts any mix of
// compact ("1d 3h 2m 59s") and verbose ("1 day 3 hours 2 minutes 59
// seconds") unit names; days|hours|minutes|seconds each match on any
// non-empty prefix of their name ("d", "da", "day", "days" all count as
// days).
func ParseDuration(s string) (time.Duration, error) {
	for _, r := range s {
		if !(isASCIIAlnum(r) || unicode.IsSpace(r)) {
			return 0, invalidDuration("Invalid character in duration: `%c`.", r)
		}
	}

	tokens := splitDurationTokens(strings.ToLower(s))

	var total time.Duration
	i := 0
	for i < len(tokens) {
		count := tokens[i]
		i++
		if i >= len(tokens) {
			return 0, invalidDuration("Unexpected end of duration.")
		}
		unit := tokens[i]
		i++

		n, err := strconv.Atoi(count)
		if err != nil {
			return 0, invalidDuration("Expected a number, got `%s`.", count)
		}

		switch {
		case isPrefixOf(unit, "days"):
			total += time.Duration(n) * 24 * time.Hour
		case isPrefixOf(unit, "hours"):
			total += time.Duration(n) * time.Hour
		case isPrefixOf(unit, "minutes"):
			total += time.Duration(n) * time.Minute
		case isPrefixOf(unit, "seconds"):
			total += time.Duration(n) * time.Second
		default:
			return 0, invalidDuration("Unknown time unit: `%s`.", unit)
		}
	}

	return total, nil
}

func isPrefixOf(prefix, full string) bool {
	return prefix != "" && strings.HasPrefix(full, prefix)
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// splitDurationTokens splits on whitespace, then further splits any token
// that mixes a leading digit run with a trailing unit run ("3h" -> "3",
// "h"), matching the original's char-boundary flat_map.
func splitDurationTokens(s string) []string {
	var tokens []string
	for _, field := range strings.Fields(s) {
		firstNonDigit := -1
		for i, r := range field {
			if r < '0' || r > '9' {
				firstNonDigit = i
				break
			}
		}
		if firstNonDigit > 0 {
			tokens = append(tokens, field[:firstNonDigit], field[firstNonDigit:])
		} else {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
