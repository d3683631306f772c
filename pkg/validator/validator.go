// Package validator checks strings against compact directive sets such as
// "is:int|maxval:100" before they are bound to typed SQL columns. A value
// that fails its directives is bound as NULL instead of poisoning the column.
package validator

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

var errMalformed = errors.New("malformed directive")

// Directive keys.
const (
	keyIs     = "is"
	keyMinLen = "minlen"
	keyMaxLen = "maxlen"
	keyMinVal = "minval"
	keyMaxVal = "maxval"
	keyChrng  = "chrng"
	keyChpool = "chpool"

	isInt   = "int"
	isFloat = "float"
)

// Check reports whether s satisfies every directive in spec.
//
// Directives are "key:value" pairs separated by "|". An "is:int" or
// "is:float" directive decides the result on its own; otherwise the
// remaining checks are ANDed. A malformed directive (non-numeric bound,
// bad chrng range) fails closed: Check returns false.
func Check(spec, s string) bool {
	dirs, err := parse(spec)
	if err != nil {
		return false
	}

	if is, ok := dirs[keyIs]; ok {
		switch is {
		case isFloat:
			return IsFloat(s)
		case isInt:
			return IsInt(s)
		}
	}

	valid := true

	if v, ok := dirs[keyMinLen]; ok {
		n, err := bound(v)
		if err != nil {
			return false
		}
		valid = valid && len(s) > n
	}

	if v, ok := dirs[keyMaxLen]; ok {
		n, err := bound(v)
		if err != nil {
			return false
		}
		valid = valid && len(s) < n
	}

	if v, ok := dirs[keyMinVal]; ok {
		n, err := bound(v)
		if err != nil {
			return false
		}
		valid = valid && greaterThan(s, n)
	}

	if v, ok := dirs[keyMaxVal]; ok {
		n, err := bound(v)
		if err != nil {
			return false
		}
		valid = valid && lessThan(s, n)
	}

	if v, ok := dirs[keyChrng]; ok {
		lo, hi, err := parseRange(v)
		if err != nil {
			return false
		}
		valid = valid && inCharRange(s, lo, hi)
	}

	if v, ok := dirs[keyChpool]; ok {
		valid = valid && inCharPool(s, v)
	}

	return valid
}

// NullString binds s as a SQL string only when it is non-empty and passes
// spec; otherwise it binds NULL.
func NullString(spec, s string) sql.NullString {
	if s == "" || !Check(spec, s) {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// IsInt reports whether s is an optionally negative decimal integer.
func IsInt(s string) bool {
	if s == "" {
		return false
	}
	digits := s
	if s[0] == '-' {
		if len(s) == 1 {
			return false
		}
		digits = s[1:]
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// IsFloat reports whether s is a signed decimal number with at most one
// decimal point and an optional trailing 'f' after the decimal part.
func IsFloat(s string) bool {
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	sawPoint := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if sawPoint {
				return false
			}
			sawPoint = true
		case c >= '0' && c <= '9':
		case c == 'f' && i == len(s)-1 && sawPoint:
		default:
			return false
		}
	}
	return true
}

func greaterThan(s string, min int) bool {
	if !IsInt(s) {
		return false
	}
	v, _ := strconv.Atoi(s)
	return v > min
}

func lessThan(s string, max int) bool {
	if !IsInt(s) {
		return false
	}
	v, _ := strconv.Atoi(s)
	return v < max
}

func inCharRange(s string, lo, hi byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < lo || s[i] > hi {
			return false
		}
	}
	return true
}

func inCharPool(s, pool string) bool {
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(pool, rune(s[i])) {
			return false
		}
	}
	return true
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parse(spec string) (map[string]string, error) {
	dirs := make(map[string]string)
	for _, part := range strings.Split(spec, "|") {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, errMalformed
		}
		dirs[key] = value
	}
	return dirs, nil
}

func bound(v string) (int, error) {
	if !IsInt(v) {
		return 0, errMalformed
	}
	return strconv.Atoi(v)
}

// parseRange parses a "L-H" byte range. L must be strictly below H.
func parseRange(v string) (byte, byte, error) {
	loStr, hiStr, ok := strings.Cut(v, "-")
	if !ok {
		return 0, 0, errMalformed
	}
	if loStr == "" || hiStr == "" || !digitsOnly(loStr) || !digitsOnly(hiStr) {
		return 0, 0, errMalformed
	}
	lo, _ := strconv.Atoi(loStr)
	hi, _ := strconv.Atoi(hiStr)
	if lo > 255 || hi > 255 {
		return 0, 0, errMalformed
	}
	if lo >= hi {
		return 0, 0, errMalformed
	}
	return byte(lo), byte(hi), nil
}
