// Package cycle names planting cycles and holds the cycle workflow packages.
//
// Tokens sort lexically in time order within one cycles-per-year setting:
//
//	1 per year  2025
//	2 per year  2025A, 2025B            (Jan-Jun, Jul-Dec)
//	3 per year  2025A, 2025B, 2025C     (Jan-Apr, May-Aug, Sep-Dec)
//	4 per year  2025Q1 .. 2025Q4
package cycle

import (
	"fmt"
	"strconv"
	"time"
)

// Normalize maps unsupported settings to two cycles per year.
func Normalize(cyclesPerYear int) int {
	if cyclesPerYear < 1 || cyclesPerYear > 4 {
		return 2
	}
	return cyclesPerYear
}

// Current returns the token of the cycle containing now.
func Current(now time.Time, cyclesPerYear int) string {
	n := Normalize(cyclesPerYear)
	month := int(now.Month())
	monthsPer := 12 / n
	if n == 3 {
		monthsPer = 4
	}
	return Format(now.Year(), (month-1)/monthsPer, n)
}

// Format builds the token for the zero-based index within year.
func Format(year, index, cyclesPerYear int) string {
	switch Normalize(cyclesPerYear) {
	case 1:
		return strconv.Itoa(year)
	case 4:
		return fmt.Sprintf("%dQ%d", year, index+1)
	default:
		return fmt.Sprintf("%d%c", year, 'A'+rune(index))
	}
}

// Parse splits a token into its year and zero-based index.
func Parse(token string, cyclesPerYear int) (year, index int, err error) {
	n := Normalize(cyclesPerYear)
	if len(token) < 4 {
		return 0, 0, fmt.Errorf("invalid cycle %q", token)
	}
	year, err = strconv.Atoi(token[:4])
	if err != nil || year < 1000 {
		return 0, 0, fmt.Errorf("invalid cycle %q: bad year", token)
	}
	suffix := token[4:]
	switch n {
	case 1:
		if suffix != "" {
			return 0, 0, fmt.Errorf("invalid cycle %q: expected YYYY", token)
		}
		return year, 0, nil
	case 4:
		if len(suffix) != 2 || suffix[0] != 'Q' || suffix[1] < '1' || suffix[1] > '4' {
			return 0, 0, fmt.Errorf("invalid cycle %q: expected YYYYQ1..YYYYQ4", token)
		}
		return year, int(suffix[1] - '1'), nil
	default:
		if len(suffix) != 1 || suffix[0] < 'A' || int(suffix[0]-'A') >= n {
			return 0, 0, fmt.Errorf("invalid cycle %q: expected YYYY followed by A..%c", token, 'A'+rune(n-1))
		}
		return year, int(suffix[0] - 'A'), nil
	}
}

// Validate reports whether token is well formed for the setting.
func Validate(token string, cyclesPerYear int) error {
	_, _, err := Parse(token, cyclesPerYear)
	return err
}

// Next returns the token following token.
func Next(token string, cyclesPerYear int) (string, error) {
	n := Normalize(cyclesPerYear)
	year, index, err := Parse(token, n)
	if err != nil {
		return "", err
	}
	index++
	if index >= n {
		year++
		index = 0
	}
	return Format(year, index, n), nil
}
