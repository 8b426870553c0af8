package statement

import (
	"strings"
	"testing"

	"github.com/aqlanhadi/extrato/extractor/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIndicators = common.Indicators{Debit: []string{"-", "D"}, Credit: []string{"C"}}

func newTestParser(t *testing.T, ignore ...string) *Parser {
	t.Helper()
	p, err := CompilePatterns("", "", "", ignore, testIndicators)
	require.NoError(t, err)
	return NewParser(p)
}

func pageFromText(text string) common.Page {
	return common.Page{Number: 1, Lines: strings.Split(text, "\n")}
}

func TestValuePattern_Matches(t *testing.T) {
	p := DefaultPatterns(testIndicators)

	tests := []struct {
		text     string
		expected []string
	}{
		{"PIX RECEBIDO 1.057,00", []string{"1.057,00"}},
		{"BOLETO 60,00-", []string{"60,00-"}},
		{"TARIFA -15,90", []string{"-15,90"}},
		{"COMPRA 1.234,56 D 10.000,00 C", []string{"1.234,56 D", "10.000,00 C"}},
		{"DEPOSITO 150,00C", []string{"150,00C"}},
		{"DOC 1.000,00 DOC", []string{"1.000,00"}},
		{"REF 1234,56", nil},
		{"CPF 123.456.789-00", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.Value.FindAllString(tt.text, -1), tt.text)
	}
}

func TestParsePage_UnseparatedThousandsIgnored(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("17/12 DEPOSITO 12345,67"))

	assert.Empty(t, cands)
}

func TestParsePage_TwoRecordsSameDay(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("17/12 PIX RECEBIDO JOAO 1.057,00\n17/12 PAGAMENTO BOLETO 60,00-\n"))

	require.Len(t, cands, 2)
	assert.Equal(t, "17/12", cands[0].Date)
	assert.Equal(t, "PIX RECEBIDO JOAO", cands[0].Description)
	assert.Equal(t, "1.057,00", cands[0].ValueToken)
	assert.Empty(t, cands[0].BalanceToken)

	assert.Equal(t, "PAGAMENTO BOLETO", cands[1].Description)
	assert.Equal(t, "60,00-", cands[1].ValueToken)
	assert.Equal(t, 1, cands[0].Page)
	assert.Equal(t, 2, cands[1].Sequence)
}

func TestParsePage_ValueAndBalanceOnSameLine(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("02/01/2024 COMPRA CARTAO 45,00 D 1.955,00 C"))

	require.Len(t, cands, 1)
	assert.Equal(t, "02/01/2024", cands[0].Date)
	assert.Equal(t, "45,00 D", cands[0].ValueToken)
	assert.Equal(t, "1.955,00 C", cands[0].BalanceToken)
	assert.Equal(t, "COMPRA CARTAO", cands[0].Description)
}

func TestParsePage_ContinuationAppendsDescriptionAndValue(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("18/12 PIX RECEBIDO\nMARIA DA SILVA 250,00\n19/12 TARIFA 10,00-"))

	require.Len(t, cands, 2)
	assert.Equal(t, "PIX RECEBIDO MARIA DA SILVA", cands[0].Description)
	assert.Equal(t, "250,00", cands[0].ValueToken)
	assert.Empty(t, cands[0].BalanceToken)
}

func TestParsePage_ContinuationFillsBalance(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("18/12 TED ENVIADA 500,00-\nSALDO APOS 1.200,00"))

	require.Len(t, cands, 1)
	assert.Equal(t, "500,00-", cands[0].ValueToken)
	assert.Equal(t, "1.200,00", cands[0].BalanceToken)
	assert.Equal(t, "TED ENVIADA SALDO APOS", cands[0].Description)
}

func TestParsePage_ReferenceNumbersStripped(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("20/12 PAGTO 00012345678 CONTA LUZ 89,90-"))

	require.Len(t, cands, 1)
	assert.Equal(t, "PAGTO CONTA LUZ", cands[0].Description)
}

func TestParsePage_DatedLineWithoutAmountIsReplaced(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("01/12 EXTRATO DE CONTA\n02/12 DEPOSITO 100,00"))

	require.Len(t, cands, 1)
	assert.Equal(t, "02/12", cands[0].Date)
	assert.Equal(t, "DEPOSITO", cands[0].Description)
}

func TestParsePage_LinesBeforeFirstDateIgnored(t *testing.T) {
	p := newTestParser(t)

	cands := p.ParsePage(pageFromText("BANCO TESTE S.A.\nSALDO DISPONIVEL 9.999,99\n05/12 SAQUE 20,00-"))

	require.Len(t, cands, 1)
	assert.Equal(t, "SAQUE", cands[0].Description)
}

func TestParsePage_IgnoredLines(t *testing.T) {
	p := newTestParser(t, `(?i)^p[aá]gina \d+`)

	cands := p.ParsePage(pageFromText("05/12 SAQUE 20,00-\nPágina 1 de 2 01/01/2024"))

	require.Len(t, cands, 1)
	assert.Equal(t, "SAQUE", cands[0].Description)
}

func TestParsePage_EmptyPage(t *testing.T) {
	p := newTestParser(t)

	assert.Empty(t, p.ParsePage(common.Page{Number: 3}))
	assert.Empty(t, p.ParsePage(pageFromText("\n\n")))
}

func TestParsePage_Idempotent(t *testing.T) {
	p := newTestParser(t)
	page := pageFromText("17/12 PIX RECEBIDO JOAO 1.057,00\nREF 123\n17/12 PAGAMENTO BOLETO 60,00-\n18/12 TARIFA 9,90- 977,10")

	first := p.ParsePage(page)
	second := p.ParsePage(page)

	assert.Equal(t, first, second)
}

func TestOnDatedLine_TransitionsFromIdle(t *testing.T) {
	p := newTestParser(t)

	state, emitted := p.OnDatedLine(State{}, "17/12 PIX RECEBIDO 1.057,00")

	assert.Nil(t, emitted)
	assert.True(t, state.Open())
	assert.Equal(t, "17/12", state.Date)
	assert.Equal(t, "1.057,00", state.Value)
}

func TestOnDatedLine_EmitsOpenCandidate(t *testing.T) {
	p := newTestParser(t)

	state, _ := p.OnDatedLine(State{}, "17/12 PIX RECEBIDO 1.057,00")
	next, emitted := p.OnDatedLine(state, "18/12 TARIFA 5,00-")

	require.NotNil(t, emitted)
	assert.Equal(t, "17/12", emitted.Date)
	assert.Equal(t, "18/12", next.Date)
}

func TestOnContinuationLine_IdleStaysIdle(t *testing.T) {
	p := newTestParser(t)

	state := p.OnContinuationLine(State{}, "JOAO 10,00")

	assert.False(t, state.Open())
	assert.Empty(t, state.Value)
}

func TestOnContinuationLine_DoesNotMutateInput(t *testing.T) {
	p := newTestParser(t)

	base := State{Date: "17/12", Description: make([]string, 1, 4), Value: "1,00"}
	base.Description[0] = "PIX"

	a := p.OnContinuationLine(base, "JOAO")
	b := p.OnContinuationLine(base, "MARIA")

	assert.Equal(t, []string{"PIX", "JOAO"}, a.Description)
	assert.Equal(t, []string{"PIX", "MARIA"}, b.Description)
	assert.Equal(t, []string{"PIX"}, base.Description)
}

func TestFlush(t *testing.T) {
	p := newTestParser(t)

	assert.Nil(t, p.Flush(State{}))
	assert.Nil(t, p.Flush(State{Date: "01/01"}))

	c := p.Flush(State{Date: "01/01", Description: []string{"A", "B"}, Balance: "1,00"})
	require.NotNil(t, c)
	assert.Equal(t, "A B", c.Description)
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := CompilePatterns("(", "", "", nil, testIndicators)
	assert.Error(t, err)

	_, err = CompilePatterns("", "", "", []string{"["}, testIndicators)
	assert.Error(t, err)
}
