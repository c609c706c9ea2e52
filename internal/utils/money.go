package utils

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseFare splits a portal price such as "TWD 1,490" into its currency and
// whole amount. ok is false when no digits are present.
func ParseFare(s string) (currency string, amount int64, ok bool) {
	s = strings.TrimSpace(s)
	var digits strings.Builder
	var cur strings.Builder
	for _, r := range s {
		if r == '.' && digits.Len() > 0 {
			break
		}
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case unicode.IsLetter(r) && digits.Len() == 0:
			cur.WriteRune(unicode.ToUpper(r))
		}
	}
	if digits.Len() == 0 {
		return "", 0, false
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return cur.String(), n, true
}

// FormatFare renders an amount with comma thousand separators, the way the
// portal prints it.
func FormatFare(currency string, amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	out := sign + formatThousand(amount)
	if currency != "" {
		out = currency + " " + out
	}
	return out
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
