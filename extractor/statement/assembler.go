package statement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aqlanhadi/extrato/extractor/common"
)

// Assemble filters and normalizes candidates into records sorted by calendar
// day, stable within a day. Records whose date is not a real calendar day sort
// last and are reported in the returned warnings.
func Assemble(candidates []common.Candidate, opts common.Options) ([]common.Record, []string) {
	records := make([]common.Record, 0, len(candidates))
	var warnings []string

	for _, c := range candidates {
		if !c.HasAmounts() {
			continue
		}
		value, ok := common.NormalizeValue(c.ValueToken, opts.Indicators)
		if !ok {
			continue
		}

		description := common.NormalizeDescription(c.Description)
		if IsSaldoLine(description, opts) {
			continue
		}

		rec := common.Record{
			Sequence:    c.Sequence,
			Date:        c.Date,
			Description: description,
		}

		amount := value.Amount
		debit := value.Debit
		if opts.Convention == common.ConventionClient {
			debit = !debit
		}
		if debit {
			rec.Debit = &amount
		} else {
			rec.Credit = &amount
		}

		if balance, ok := common.NormalizeValue(c.BalanceToken, opts.Indicators); ok {
			signed := balance.Signed()
			rec.Balance = &signed
		}

		if day, err := common.ParseDate(c.Date, opts.DefaultYear); err == nil {
			rec.Day = &day
		} else {
			warnings = append(warnings, fmt.Sprintf("page %d: %q is not a calendar date, record sorted last", c.Page, c.Date))
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Day, records[j].Day
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	if opts.DayBalance {
		SelectDayBalances(records)
	}

	return records, warnings
}

// IsSaldoLine reports whether a normalized description is a balance
// carry-forward line under the configured filter mode.
func IsSaldoLine(description string, opts common.Options) bool {
	for _, marker := range opts.SaldoMarkers {
		marker = common.NormalizeDescription(marker)
		if marker == "" {
			continue
		}
		switch opts.SaldoFilterMode {
		case common.SaldoExact:
			if description == marker {
				return true
			}
		default:
			if strings.Contains(description, marker) {
				return true
			}
		}
	}
	return false
}
