package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAmountRegex  = regexp.MustCompile(`[^0-9.,]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeValue turns a raw value token ("1.234,56 D", "60,00-", "0,01 C") into a
// non-negative amount plus its debit classification. The second return is false
// when the token is absent or cannot be read as a number; that is not an error.
func NormalizeValue(token string, ind Indicators) (Value, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return Value{}, false
	}

	debit := false
	for _, marker := range ind.Debit {
		if marker != "" && strings.Contains(token, strings.ToUpper(marker)) {
			debit = true
			break
		}
	}

	clean := nonAmountRegex.ReplaceAllString(token, "")
	if !strings.ContainsAny(clean, "0123456789") {
		return Value{}, false
	}

	hasDot := strings.Contains(clean, ".")
	hasComma := strings.Contains(clean, ",")
	switch {
	case hasDot && hasComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case hasComma:
		clean = strings.ReplaceAll(clean, ",", ".")
	case strings.Count(clean, ".") > 1:
		// "1.234.567": only thousands separators
		clean = strings.ReplaceAll(clean, ".", "")
	}

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return Value{}, false
	}

	return Value{Amount: amount.Abs(), Debit: debit}, true
}

// ParseDate reads DD/MM, DD/MM/YY or DD/MM/YYYY. defaultYear fills a missing year.
// Calendar validity is checked here, not by the line matcher.
func ParseDate(value string, defaultYear int) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("unrecognised date %q", value)
	}

	year := defaultYear
	if len(parts) == 3 {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognised year in %q: %w", value, err)
		}
		if len(parts[2]) == 2 {
			y += 2000
		}
		year = y
	}

	full := fmt.Sprintf("%s/%s/%04d", parts[0], parts[1], year)
	return time.Parse("02/01/2006", full)
}

// FlattenRow joins the present cells of a table row with single spaces.
func FlattenRow(cells []*string) string {
	parts := make([]string, 0, len(cells))
	for _, cell := range cells {
		if cell == nil {
			continue
		}
		if text := strings.TrimSpace(*cell); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// CollapseSpaces trims and squeezes runs of whitespace to one space.
func CollapseSpaces(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// NormalizeDescription composes accents split by the PDF font encoding,
// uppercases and squeezes whitespace.
func NormalizeDescription(text string) string {
	return CollapseSpaces(strings.ToUpper(norm.NFC.String(text)))
}
