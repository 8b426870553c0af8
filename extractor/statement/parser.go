package statement

import (
	"strings"

	"github.com/aqlanhadi/extrato/extractor/common"
)

// State is the parser's position between two lines. A zero State is idle;
// a non-empty Date means a candidate is open and accumulating.
type State struct {
	Date        string
	Description []string
	Value       string
	Balance     string
}

func (s State) Open() bool {
	return s.Date != ""
}

func (s State) candidate() common.Candidate {
	return common.Candidate{
		Date:         s.Date,
		Description:  strings.Join(s.Description, " "),
		ValueToken:   s.Value,
		BalanceToken: s.Balance,
	}
}

type Parser struct {
	patterns Patterns
}

func NewParser(p Patterns) *Parser {
	return &Parser{patterns: p}
}

// split pulls the value tokens out of text and returns what remains as the
// description, with reference numbers dropped.
func (p *Parser) split(text string) ([]string, string) {
	values := p.patterns.Value.FindAllString(text, -1)
	rest := p.patterns.Value.ReplaceAllString(text, " ")
	rest = p.patterns.Reference.ReplaceAllString(rest, " ")
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values, common.CollapseSpaces(rest)
}

// OnDatedLine opens a new candidate from a line carrying a date. The open
// candidate is emitted first when it already holds a value or a balance;
// otherwise it is replaced. A line without a date is treated as continuation.
func (p *Parser) OnDatedLine(s State, line string) (State, *common.Candidate) {
	loc := p.patterns.Date.FindStringIndex(line)
	if loc == nil {
		return p.OnContinuationLine(s, line), nil
	}

	emitted := p.Flush(s)

	values, desc := p.split(line[:loc[0]] + " " + line[loc[1]:])
	next := State{Date: line[loc[0]:loc[1]]}
	if desc != "" {
		next.Description = []string{desc}
	}
	switch n := len(values); {
	case n >= 2:
		next.Value = values[n-2]
		next.Balance = values[n-1]
	case n == 1:
		next.Value = values[0]
	}
	return next, emitted
}

// OnContinuationLine folds an undated line into the open candidate: the first
// value fills a missing value, the last remaining one a missing balance, and
// the leftover text extends the description. Idle states are returned as is.
func (p *Parser) OnContinuationLine(s State, line string) State {
	if !s.Open() {
		return s
	}

	values, desc := p.split(line)
	if s.Value == "" && len(values) > 0 {
		s.Value = values[0]
		values = values[1:]
	}
	if s.Balance == "" && len(values) > 0 {
		s.Balance = values[len(values)-1]
	}
	if desc != "" {
		s.Description = append(s.Description[:len(s.Description):len(s.Description)], desc)
	}
	return s
}

// Flush closes the open candidate if it carries any amount.
func (p *Parser) Flush(s State) *common.Candidate {
	if !s.Open() || (s.Value == "" && s.Balance == "") {
		return nil
	}
	c := s.candidate()
	return &c
}

func (p *Parser) ignored(line string) bool {
	for _, re := range p.patterns.Ignore {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ParsePage scans one page and returns its candidates in the order they closed.
func (p *Parser) ParsePage(page common.Page) []common.Candidate {
	var (
		state      State
		candidates []common.Candidate
	)

	emit := func(c *common.Candidate) {
		if c == nil {
			return
		}
		c.Page = page.Number
		c.Sequence = len(candidates) + 1
		candidates = append(candidates, *c)
	}

	for _, raw := range page.Lines {
		line := strings.TrimSpace(raw)
		if line == "" || p.ignored(line) {
			continue
		}

		if p.patterns.Date.MatchString(line) {
			var emitted *common.Candidate
			state, emitted = p.OnDatedLine(state, line)
			emit(emitted)
			continue
		}
		state = p.OnContinuationLine(state, line)
	}
	emit(p.Flush(state))

	return candidates
}
