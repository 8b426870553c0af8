// Package statement turns page lines into finished statement records: a line
// parser that accumulates candidates, the assembler that filters, normalizes and
// sorts them, and the selector that keeps one balance per day.
package statement

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/aqlanhadi/extrato/extractor/common"
)

const (
	// DefaultDatePattern matches DD/MM with an optional /YYYY or /YY.
	DefaultDatePattern = `\b\d{2}/\d{2}(?:/(?:\d{4}|\d{2}))?\b`
	// DefaultReferencePattern matches document and reference numbers.
	DefaultReferencePattern = `\d{6,}`
)

// Patterns drive the line parser for one layout.
type Patterns struct {
	Date      *regexp.Regexp
	Value     *regexp.Regexp
	Reference *regexp.Regexp
	Ignore    []*regexp.Regexp
}

// ValuePattern builds the monetary value expression `\d{1,3}(\.\d{3})*,\d{2}`
// around the configured markers: letter markers may follow after one optional
// space, symbol markers must touch the number, and a "-" debit marker may also lead.
func ValuePattern(ind common.Indicators) string {
	var suffixes []string
	leadingMinus := false
	for _, marker := range append(append([]string{}, ind.Debit...), ind.Credit...) {
		if marker == "" {
			continue
		}
		if marker == "-" {
			leadingMinus = true
		}
		if isWord(marker) {
			suffixes = append(suffixes, `\s?`+regexp.QuoteMeta(strings.ToUpper(marker))+`\b`)
		} else {
			suffixes = append(suffixes, regexp.QuoteMeta(marker))
		}
	}

	var b strings.Builder
	if leadingMinus {
		b.WriteString(`-?`)
	}
	b.WriteString(`\b\d{1,3}(?:\.\d{3})*,\d{2}`)
	if len(suffixes) > 0 {
		b.WriteString(`(?:` + strings.Join(suffixes, "|") + `)?`)
	}
	return b.String()
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// CompilePatterns compiles the given expressions; empty ones fall back to the defaults.
func CompilePatterns(date, value, reference string, ignore []string, ind common.Indicators) (Patterns, error) {
	if date == "" {
		date = DefaultDatePattern
	}
	if value == "" {
		value = ValuePattern(ind)
	}
	if reference == "" {
		reference = DefaultReferencePattern
	}

	var p Patterns
	var err error
	if p.Date, err = regexp.Compile(date); err != nil {
		return Patterns{}, fmt.Errorf("invalid date pattern: %w", err)
	}
	if p.Value, err = regexp.Compile(value); err != nil {
		return Patterns{}, fmt.Errorf("invalid value pattern: %w", err)
	}
	if p.Reference, err = regexp.Compile(reference); err != nil {
		return Patterns{}, fmt.Errorf("invalid reference pattern: %w", err)
	}
	for _, expr := range ignore {
		re, err := regexp.Compile(expr)
		if err != nil {
			return Patterns{}, fmt.Errorf("invalid ignore pattern %q: %w", expr, err)
		}
		p.Ignore = append(p.Ignore, re)
	}
	return p, nil
}

// DefaultPatterns is the generic layout.
func DefaultPatterns(ind common.Indicators) Patterns {
	p, err := CompilePatterns("", "", "", nil, ind)
	if err != nil {
		panic(err)
	}
	return p
}
