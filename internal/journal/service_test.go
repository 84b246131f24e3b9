package journal

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brentwalther/jcf-sub000/internal/accounts"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

func sampleModel() *model.Model {
	b := model.NewBuilder()
	for _, a := range accounts.DefaultChart("minimal") {
		b.AddAccount(a)
	}
	add := func(id string, d time.Time, desc, from, to string, cents int64) {
		b.AddTransaction(model.NewTransaction(id, d, desc))
		b.AddSplit(model.NewSplit(from, id, big.NewRat(-cents, 100)))
		b.AddSplit(model.NewSplit(to, id, big.NewRat(cents, 100)))
	}
	add("jan", date(2025, 1, 31), "Groceries", "Assets", "Expenses", 5691)
	add("feb", date(2025, 2, 1), "Paycheck", "Income", "Assets", 250000)
	b.AddTransaction(model.NewTransaction("note", date(2025, 2, 3), "Opening memo"))
	return b.Build()
}

func TestService_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)
	m := sampleModel()
	require.NoError(t, svc.Save(m))

	for _, p := range []string{"2025/01/journal.csv", "2025/02/journal.csv", "accounts/chart-of-accounts.csv"} {
		_, err := os.Stat(filepath.Join(dir, p))
		assert.NoError(t, err, p)
	}

	got, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, m.Accounts(), got.Accounts())
	assert.ElementsMatch(t, m.Transactions(), got.Transactions())
	assert.ElementsMatch(t, m.AllSplits(), got.AllSplits())
	assert.Empty(t, got.Splits("note"))
}

func TestService_ReadMonth(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)
	require.NoError(t, svc.Save(sampleModel()))

	rows, err := svc.ReadMonth(2025, 2)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "feb", rows[0].Transaction.ID)
	assert.Equal(t, "note", rows[2].Transaction.ID)
	assert.False(t, rows[2].HasSplit)

	rows, err = svc.ReadMonth(2024, 12)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestService_LoadEmptyRepo(t *testing.T) {
	m, err := NewService(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Empty(t, m.Accounts())
	assert.Empty(t, m.Transactions())
}

func TestService_SaveRemovesStaleMonths(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)
	require.NoError(t, svc.Save(sampleModel()))

	b := model.NewBuilder()
	b.AddAccount(model.Account{ID: "Assets", Name: "Assets", Type: model.AccountTypeAsset})
	b.AddTransaction(model.NewTransaction("mar", date(2025, 3, 1), "Only March"))
	require.NoError(t, svc.Save(b.Build()))

	_, err := os.Stat(filepath.Join(dir, "2025", "01", "journal.csv"))
	assert.True(t, os.IsNotExist(err))

	got, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, got.Transactions(), 1)
	assert.Equal(t, "mar", got.Transactions()[0].ID)
}

func TestService_SaveRejectsDanglingSplits(t *testing.T) {
	b := model.NewBuilder()
	b.AddAccount(model.Account{ID: "Assets", Name: "Assets"})
	b.AddSplit(model.NewSplit("Assets", "ghost", big.NewRat(1, 1)))

	dir := t.TempDir()
	err := NewService(dir).Save(b.Build())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	_, statErr := os.Stat(accounts.Path(dir))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRows_RepeatedTransactionWrittenOnce(t *testing.T) {
	b := model.NewBuilder()
	txn := model.NewTransaction("dup", date(2025, 1, 1), "Twice")
	b.AddTransaction(txn)
	b.AddTransaction(txn)
	b.AddSplit(model.NewSplit("A", "dup", big.NewRat(1, 1)))
	b.AddSplit(model.NewSplit("B", "dup", big.NewRat(-1, 1)))
	b.AddSplit(model.NewSplit("A", "dup", big.NewRat(1, 1)))
	b.AddSplit(model.NewSplit("B", "dup", big.NewRat(-1, 1)))

	rows, err := Rows(b.Build())
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestRows_Ordering(t *testing.T) {
	b := model.NewBuilder()
	b.AddTransaction(model.NewTransaction("b", date(2025, 1, 2), "later"))
	b.AddTransaction(model.NewTransaction("z", date(2025, 1, 1), "first day z"))
	b.AddTransaction(model.NewTransaction("a", date(2025, 1, 1), "first day a"))

	rows, err := Rows(b.Build())
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.Transaction.ID)
	}
	assert.Equal(t, []string{"a", "z", "b"}, ids)
}
