package importer

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

const gnucashSchema = `
CREATE TABLE accounts (guid TEXT PRIMARY KEY, name TEXT NOT NULL, account_type TEXT NOT NULL, parent_guid TEXT);
CREATE TABLE transactions (guid TEXT PRIMARY KEY, post_date TEXT, description TEXT);
CREATE TABLE splits (guid TEXT PRIMARY KEY, tx_guid TEXT NOT NULL, account_guid TEXT NOT NULL, value_num INTEGER NOT NULL, value_denom INTEGER NOT NULL);
INSERT INTO accounts VALUES
  ('root', 'Root Account', 'ROOT', NULL),
  ('a1', 'Checking', 'BANK', 'root'),
  ('e1', 'Food', 'EXPENSE', 'root'),
  ('x1', 'Odd', 'SOMETHING', 'root');
INSERT INTO transactions VALUES
  ('t1', '2020-10-31 10:59:00', 'Grocery'),
  ('t2', '20201101000000', 'Coffee'),
  ('t3', 'yesterday', 'Broken');
INSERT INTO splits VALUES
  ('s1', 't1', 'a1', -5691, 100),
  ('s2', 't1', 'e1', 5691, 100),
  ('s3', 't2', 'a1', -450, 100),
  ('s4', 't2', 'e1', 450, 100),
  ('s5', 't2', 'e1', 1, 0);
`

func seedGnuCash(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(gnucashSchema)
	require.NoError(t, err)
}

func TestGnuCashAccountType(t *testing.T) {
	assert.Equal(t, model.AccountTypeAsset, GnuCashAccountType("BANK"))
	assert.Equal(t, model.AccountTypeAsset, GnuCashAccountType("stock"))
	assert.Equal(t, model.AccountTypeLiability, GnuCashAccountType("CREDIT"))
	assert.Equal(t, model.AccountTypeEquity, GnuCashAccountType("EQUITY"))
	assert.Equal(t, model.AccountTypeIncome, GnuCashAccountType("INCOME"))
	assert.Equal(t, model.AccountTypeExpense, GnuCashAccountType("EXPENSE"))
	assert.Equal(t, model.AccountTypeRoot, GnuCashAccountType("ROOT"))
	assert.Equal(t, model.AccountTypeUnknown, GnuCashAccountType("SOMETHING"))
}

func TestGnuCashParser_ReadDB(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	seedGnuCash(t, db)

	var logs bytes.Buffer
	p := &GnuCashParser{Logger: log.New(&logs)}
	m, err := p.ReadDB(context.Background(), db)
	require.NoError(t, err)

	assert.Len(t, m.Accounts(), 4)
	checking, ok := m.Account("a1")
	require.True(t, ok)
	assert.Equal(t, model.Account{ID: "a1", Name: "Checking", Type: model.AccountTypeAsset, ParentID: "root"}, checking)
	root, _ := m.Account("root")
	assert.Empty(t, root.ParentID)
	odd, _ := m.Account("x1")
	assert.Equal(t, model.AccountTypeUnknown, odd.Type)

	txns := m.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, "Grocery", txns[0].Description)
	assert.Equal(t, "2020-11-01", txns[1].PostDate().Format("2006-01-02"))

	assert.True(t, model.AreBalanced(m.Splits("t1")))
	assert.True(t, model.AreBalanced(m.Splits("t2")))
	assert.Len(t, m.Splits("t2"), 2)
	assert.Equal(t, int64(-5691), m.Splits("t1")[0].ValueNumerator)

	assert.Contains(t, logs.String(), "skipping transaction")
	assert.Contains(t, logs.String(), "zero denominator")
	assert.Equal(t, "Checking", m.FullName("a1"))
}

func TestGnuCashParser_ParseFromReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.gnucash")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	seedGnuCash(t, db)
	require.NoError(t, db.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	p := &GnuCashParser{Logger: log.New(&bytes.Buffer{})}
	m, err := p.Parse(f)
	require.NoError(t, err)
	assert.Len(t, m.Transactions(), 2)
	assert.Equal(t, 4, m.NumSplits())
}

func TestGnuCashParser_NotABook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gnucash")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	p := &GnuCashParser{}
	_, err = p.ParseFile(context.Background(), path)
	assert.Error(t, err)
}
