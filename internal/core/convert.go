package core

// convert.go holds the string parsers shared by the formatter, the demand
// entry extractor and the descriptor builder.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex matches plain integers, decimals and scientific notation.
// It keeps strconv from accepting forms like "Inf", "NaN" or hex floats.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// integerRegex matches an optionally signed run of digits.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// Date layouts accepted by parseDate. Day-first is the form convention;
// month-first input is not recognized.
var dateLayouts = []string{
	"2/1/2006",
	"2006-01-02",
}

const isoDate = "2006-01-02"

// parseNumber parses a trimmed decimal string into a finite float.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

// parseInt parses a trimmed integer string.
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !integerRegex.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseBool accepts true/false, yes/no, t/f, y/n and 1/0.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// parseDate recognizes DD/MM/YYYY and YYYY-MM-DD and returns the ISO form.
func parseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// normalizeDate returns the ISO form of a recognized date and the raw input,
// untouched, otherwise.
func normalizeDate(s string) string {
	if iso, ok := parseDate(s); ok {
		return iso
	}
	return s
}

// scalarInt returns the integer held by a scalar, accepting integral
// numbers and integer strings.
func scalarInt(s Scalar) (int64, bool) {
	switch s.Kind {
	case ScalarNumber:
		if !finite(s.Num) || s.Num != float64(int64(s.Num)) {
			return 0, false
		}
		return int64(s.Num), true
	case ScalarString:
		return parseInt(s.Str)
	}
	return 0, false
}
