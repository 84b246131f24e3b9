package ledger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

func newTestParser() (*Parser, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewParser(log.New(&buf)), &buf
}

func amounts(splits []model.Split) []string {
	var out []string
	for _, s := range splits {
		out = append(out, s.Amount().RatString())
	}
	return out
}

func TestParse_ImplicitBalance(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 * Halloween superstore",
		"  Liabilities:Credit Cards:Chase  $-99",
		"  Expenses:Misc",
	})

	txns := m.Transactions()
	require.Len(t, txns, 1)
	assert.Equal(t, "Halloween superstore", txns[0].Description)
	assert.Equal(t, time.Date(2020, 10, 31, 0, 0, 0, 0, time.UTC).Unix(), txns[0].PostDateEpochSecond)

	splits := m.Splits(txns[0].ID)
	require.Len(t, splits, 2)
	assert.Equal(t, []string{"-99", "99"}, amounts(splits))
	assert.Equal(t, "Liabilities:Credit Cards:Chase", splits[0].AccountID)
	assert.Equal(t, "Expenses:Misc", splits[1].AccountID)
	assert.Empty(t, logs.String())
}

func TestParse_AutoCreatesUnknownAccounts(t *testing.T) {
	p, _ := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  Assets:Checking  $-10",
		"  Expenses:Food  $10",
	})

	for _, name := range []string{"Assets:Checking", "Expenses:Food"} {
		acct, ok := m.Account(name)
		require.True(t, ok, "account %s", name)
		assert.Equal(t, name, acct.Name)
		assert.Equal(t, model.AccountTypeUnknown, acct.Type)
		assert.Empty(t, acct.ParentID)
	}
}

func TestParse_DuplicateTransactionsPreserved(t *testing.T) {
	block := []string{
		"2021/01/05 Coffee",
		"  Assets:Cash  $-3.50",
		"  Expenses:Coffee  $3.50",
		"",
	}
	p, _ := newTestParser()
	m := p.ParseLines(append(append([]string{}, block...), block...))

	txns := m.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, txns[0].ID, txns[1].ID)
	assert.Len(t, m.Splits(txns[0].ID), 4)
}

func TestParse_HeaderTokens(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"2020-01-02 Plain description", "Plain description"},
		{"2020-01-02 * Cleared", "Cleared"},
		{"2020-01-02 ! Pending", "Pending"},
		{"2020-01-02 (1042) With code", "With code"},
		{"2020-01-02 * (1042) Both", "Both"},
		{"2020/01/02   Spaced   out", "Spaced   out"},
		{"2020-01-02", ""},
	}
	for _, tt := range tests {
		p, _ := newTestParser()
		m := p.ParseLines([]string{tt.header, "  A  $1", "  B"})
		txns := m.Transactions()
		require.Len(t, txns, 1, tt.header)
		assert.Equal(t, tt.want, txns[0].Description, tt.header)
	}
}

func TestParse_AccountDeclarations(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"account Assets:Checking",
		"account Expenses:Food",
		"account Assets:Checking",
	})

	assert.Len(t, m.Accounts(), 2)
	assert.Contains(t, logs.String(), "duplicate account declaration")
}

func TestParse_UnrecognizedLineSkipped(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"this is not ledger",
		"2020-10-31 Store",
		"  A  $1",
		"  B",
	})

	assert.Len(t, m.Transactions(), 1)
	assert.Contains(t, logs.String(), "unrecognized line")
}

func TestParse_FirstSplitWithoutAmount(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  Expenses:Misc",
		"  Assets:Cash  $-5",
	})

	txns := m.Transactions()
	require.Len(t, txns, 1)
	splits := m.Splits(txns[0].ID)
	require.Len(t, splits, 1)
	assert.Equal(t, "Assets:Cash", splits[0].AccountID)
	assert.Contains(t, logs.String(), "first split has no amount")
	assert.Contains(t, logs.String(), "does not balance")
}

func TestParse_OnlyOneInferredSplit(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  Assets:Cash  $-5",
		"  Expenses:A",
		"  Expenses:B",
	})

	splits := m.Splits(m.Transactions()[0].ID)
	assert.Equal(t, []string{"-5", "5"}, amounts(splits))
	assert.Contains(t, logs.String(), "second split without amount")
}

func TestParse_ExplicitSplitAfterInferredSkipped(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  Assets:Cash  $-99",
		"  Expenses:A",
		"  Expenses:B  $5",
	})

	splits := m.Splits(m.Transactions()[0].ID)
	assert.Equal(t, []string{"-99", "99"}, amounts(splits))
	assert.True(t, model.AreBalanced(splits))
	assert.Contains(t, logs.String(), "split after the implicit split")
	_, ok := m.Account("Expenses:B")
	assert.False(t, ok)
}

func TestParse_AmountOutOfRangeSkipped(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  Assets:Cash  $0.12345678901234567891",
		"  Assets:Cash  $-5",
		"  Expenses:A",
	})

	splits := m.Splits(m.Transactions()[0].ID)
	assert.Equal(t, []string{"-5", "5"}, amounts(splits))
	assert.Contains(t, logs.String(), "amount out of range")
}

func TestParse_EmptyTransactionWarns(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{"2020-10-31 Nothing", ""})

	assert.Len(t, m.Transactions(), 1)
	assert.Contains(t, logs.String(), "no splits")
}

func TestParse_UnbalancedKept(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Store",
		"  A  $-5",
		"  B  $4",
	})

	assert.Len(t, m.Splits(m.Transactions()[0].ID), 2)
	assert.Contains(t, logs.String(), "does not balance")
}

func TestParse_DecimalAndThousands(t *testing.T) {
	p, _ := newTestParser()
	m := p.ParseLines([]string{
		"2020-10-31 Rent",
		"  Expenses:Rent  $1,234.50",
		"  Assets:Checking",
	})

	splits := m.Splits(m.Transactions()[0].ID)
	require.Len(t, splits, 2)
	assert.Equal(t, int64(2469), splits[0].ValueNumerator)
	assert.Equal(t, int64(2), splits[0].ValueDenominator)
	assert.Equal(t, "-2469/2", splits[1].Amount().RatString())
}

func TestParse_CommentsIgnored(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{
		"; header comment",
		"2020-10-31 Store",
		"  ; note inside",
		"  A  $1",
		"  B",
	})

	assert.Len(t, m.Splits(m.Transactions()[0].ID), 2)
	assert.Empty(t, logs.String())
}

func TestParse_BadDateSkipsHeader(t *testing.T) {
	p, logs := newTestParser()
	m := p.ParseLines([]string{"2020-13-45 Nope"})

	assert.Empty(t, m.Transactions())
	assert.Contains(t, logs.String(), "bad transaction date")
}

func TestParse_Reader(t *testing.T) {
	in := "2020-10-31 * Halloween superstore\n  Liabilities:Credit Cards:Chase  $-99\n  Expenses:Misc\n"
	m, err := Parse(strings.NewReader(in), log.New(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Len(t, m.Transactions(), 1)
	assert.Equal(t, 2, m.NumSplits())
}
