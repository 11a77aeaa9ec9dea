package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	manYenRegex = regexp.MustCompile(`([\d,]+(?:\.\d+)?)万`)
	yenRegex    = regexp.MustCompile(`([\d,]+)円`)
	monthsRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)ヶ月`)
)

// ParsePrice converts portal price text to yen. Month-count notation
// ("1ヶ月") and unrecognised text return nil; "-" and "なし" mean zero.
func ParsePrice(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := manYenRegex.FindStringSubmatch(text); m != nil {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil {
			return intPtr(int(math.Round(f * 10000)))
		}
	}

	if m := yenRegex.FindStringSubmatch(text); m != nil {
		digits := strings.ReplaceAll(m[1], ",", "")
		if n, err := strconv.Atoi(digits); err == nil {
			return intPtr(n)
		}
	}

	if strings.Contains(text, "ヶ月") {
		return nil
	}
	if text == "-" || strings.Contains(text, "なし") {
		return intPtr(0)
	}
	return nil
}

// ParseMonths extracts N from "Nヶ月" deposit/key-money text
func ParseMonths(text string) (float64, bool) {
	m := monthsRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseMonthlyPrice resolves a deposit/key-money cell, computing month-count
// values from rent when rent is known.
func parseMonthlyPrice(text string, rent *int) *int {
	if v := ParsePrice(text); v != nil {
		return v
	}
	if rent == nil {
		return nil
	}
	if months, ok := ParseMonths(text); ok {
		return intPtr(int(math.Round(months * float64(*rent))))
	}
	return nil
}

func intPtr(n int) *int { return &n }
