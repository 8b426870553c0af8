package common

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source selects how page content is pulled out of the PDF.
type Source string

const (
	SourceText  Source = "text"
	SourceTable Source = "table"
)

// SaldoFilterMode decides how balance carry-forward lines are recognised.
type SaldoFilterMode string

const (
	SaldoExact     SaldoFilterMode = "exact"
	SaldoSubstring SaldoFilterMode = "substring"
)

// Convention is the accounting sign rule applied when filling the debit and credit columns.
type Convention string

const (
	// ConventionSupplier keeps the statement's own reading: credit positive, debit negative.
	ConventionSupplier Convention = "supplier"
	// ConventionClient swaps the columns.
	ConventionClient Convention = "client"
)

// Page is one page of extracted content, already reduced to lines.
type Page struct {
	Number int      `json:"number"`
	Lines  []string `json:"lines"`
}

// Candidate is a transaction still being assembled by the parser.
// Empty ValueToken / BalanceToken mean absent.
type Candidate struct {
	Page         int    `json:"page"`
	Sequence     int    `json:"sequence"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	ValueToken   string `json:"value_token,omitempty"`
	BalanceToken string `json:"balance_token,omitempty"`
}

// HasAmounts reports whether the candidate carries a value or a balance.
func (c Candidate) HasAmounts() bool {
	return c.ValueToken != "" || c.BalanceToken != ""
}

// Value is a normalized amount. Amount is never negative; the sign lives in Debit.
type Value struct {
	Amount decimal.Decimal
	Debit  bool
}

// Signed returns the amount negated for debits.
func (v Value) Signed() decimal.Decimal {
	if v.Debit {
		return v.Amount.Neg()
	}
	return v.Amount
}

// Record is one finished output row. Exactly one of Debit and Credit is set.
type Record struct {
	Sequence    int              `json:"sequence"`
	Date        string           `json:"date"`
	Day         *time.Time       `json:"day,omitempty"`
	Description string           `json:"description"`
	Debit       *decimal.Decimal `json:"debit,omitempty"`
	Credit      *decimal.Decimal `json:"credit,omitempty"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
}

// Amount returns the populated column, negative for debits.
func (r Record) Amount() decimal.Decimal {
	if r.Debit != nil {
		return r.Debit.Neg()
	}
	if r.Credit != nil {
		return *r.Credit
	}
	return decimal.Zero
}

// DisplayDate is DD/MM/YYYY when the calendar day is known, the raw token otherwise.
func (r Record) DisplayDate() string {
	if r.Day != nil {
		return r.Day.Format("02/01/2006")
	}
	return r.Date
}

type Statement struct {
	ID                   string          `json:"id"`
	Source               string          `json:"source"`
	Layout               string          `json:"layout"`
	Pages                int             `json:"pages"`
	Records              []Record        `json:"records"`
	TotalCredit          decimal.Decimal `json:"total_credit"`
	TotalDebit           decimal.Decimal `json:"total_debit"`
	Nett                 decimal.Decimal `json:"nett"`
	TransactionStartDate *time.Time      `json:"transaction_start_date,omitempty"`
	TransactionEndDate   *time.Time      `json:"transaction_end_date,omitempty"`
	Warnings             []string        `json:"warnings,omitempty"`
}

// Indicators are the markers that classify a value token.
type Indicators struct {
	Debit  []string
	Credit []string
}

// Options is the explicit conversion configuration handed to the core.
type Options struct {
	DefaultYear     int
	SaldoFilterMode SaldoFilterMode
	SaldoMarkers    []string
	Indicators      Indicators
	Convention      Convention
	DayBalance      bool
	Workers         int
}

// DefaultOptions mirrors the embedded configuration defaults.
func DefaultOptions() Options {
	return Options{
		DefaultYear:     time.Now().Year(),
		SaldoFilterMode: SaldoSubstring,
		SaldoMarkers:    []string{"SALDO"},
		Indicators: Indicators{
			Debit:  []string{"-", "D"},
			Credit: []string{"C"},
		},
		Convention: ConventionSupplier,
		DayBalance: true,
		Workers:    1,
	}
}
