package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var digitsRe = regexp.MustCompile(`-?\d+`)

// ParseExperience reads years of experience from free-form input such as
// 5, "5", "5 Years" or "about 12yrs". It returns nil when no integer is found.
func ParseExperience(v interface{}) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return nonNegative(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return nonNegative(int(t))
	case json.Number:
		return ParseExperience(t.String())
	case string:
		m := digitsRe.FindString(strings.TrimSpace(t))
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		return nonNegative(n)
	default:
		return ParseExperience(fmt.Sprint(t))
	}
}

func nonNegative(n int) *int {
	if n < 0 {
		return nil
	}
	return &n
}

// FormatExperience renders the "N years" label used by the directory pages.
// Zero and missing experience render as "".
func FormatExperience(years *int) string {
	if years == nil || *years == 0 {
		return ""
	}
	return fmt.Sprintf("%d years", *years)
}

// RoundTo rounds f to the given number of decimal places.
func RoundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
