package importer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// gnucashAccountTypes maps every GnuCash account type to an AccountType.
// Anything else is AccountTypeUnknown.
var gnucashAccountTypes = map[string]model.AccountType{
	"ASSET":      model.AccountTypeAsset,
	"BANK":       model.AccountTypeAsset,
	"CASH":       model.AccountTypeAsset,
	"STOCK":      model.AccountTypeAsset,
	"MUTUAL":     model.AccountTypeAsset,
	"RECEIVABLE": model.AccountTypeAsset,
	"LIABILITY":  model.AccountTypeLiability,
	"CREDIT":     model.AccountTypeLiability,
	"PAYABLE":    model.AccountTypeLiability,
	"EQUITY":     model.AccountTypeEquity,
	"TRADING":    model.AccountTypeEquity,
	"INCOME":     model.AccountTypeIncome,
	"EXPENSE":    model.AccountTypeExpense,
	"ROOT":       model.AccountTypeRoot,
}

// GnuCashAccountType maps a GnuCash account_type value to an AccountType.
func GnuCashAccountType(s string) model.AccountType {
	if t, ok := gnucashAccountTypes[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t
	}
	return model.AccountTypeUnknown
}

// GnuCash has stored post_date both ways across versions.
var gnucashDateLayouts = []string{"2006-01-02 15:04:05", "20060102150405"}

// GnuCashParser reads a GnuCash book saved in sqlite format.
type GnuCashParser struct {
	Logger *log.Logger
}

// Format returns the parser name.
func (p *GnuCashParser) Format() string { return "gnucash" }

// Parse copies r to a temporary file and reads it as a sqlite book.
func (p *GnuCashParser) Parse(r io.Reader) (*model.Model, error) {
	f, err := os.CreateTemp("", "jcf-gnucash-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("creating temp book: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("copying book: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing temp book: %w", err)
	}
	return p.ParseFile(context.Background(), f.Name())
}

// ParseFile reads the sqlite book at path.
func (p *GnuCashParser) ParseFile(ctx context.Context, path string) (*model.Model, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening book %s: %w", path, err)
	}
	defer db.Close()
	return p.ReadDB(ctx, db)
}

// ReadDB reads accounts, transactions and splits from an open book.
func (p *GnuCashParser) ReadDB(ctx context.Context, db *sql.DB) (*model.Model, error) {
	logger := logging.OrDefault(p.Logger).WithPrefix("gnucash")
	b := model.NewBuilder()

	if err := readGnuCashAccounts(ctx, db, b); err != nil {
		return nil, err
	}
	if err := readGnuCashTransactions(ctx, db, b, logger); err != nil {
		return nil, err
	}
	if err := readGnuCashSplits(ctx, db, b, logger); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func readGnuCashAccounts(ctx context.Context, db *sql.DB, b *model.Builder) error {
	rows, err := db.QueryContext(ctx, `SELECT guid, name, account_type, COALESCE(parent_guid, '') FROM accounts`)
	if err != nil {
		return fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var guid, name, typ, parent string
		if err := rows.Scan(&guid, &name, &typ, &parent); err != nil {
			return fmt.Errorf("scanning account: %w", err)
		}
		b.AddAccount(model.Account{ID: guid, Name: name, Type: GnuCashAccountType(typ), ParentID: parent})
	}
	return rows.Err()
}

func readGnuCashTransactions(ctx context.Context, db *sql.DB, b *model.Builder, logger *log.Logger) error {
	rows, err := db.QueryContext(ctx, `SELECT guid, COALESCE(post_date, ''), COALESCE(description, '') FROM transactions`)
	if err != nil {
		return fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var guid, posted, desc string
		if err := rows.Scan(&guid, &posted, &desc); err != nil {
			return fmt.Errorf("scanning transaction: %w", err)
		}
		date, err := parseGnuCashDate(posted)
		if err != nil {
			logger.Warn("skipping transaction", "transaction", guid, "reason", err)
			continue
		}
		b.AddTransaction(model.NewTransaction(guid, date, desc))
	}
	return rows.Err()
}

func parseGnuCashDate(s string) (time.Time, error) {
	for _, layout := range gnucashDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized post_date %q", s)
}

func readGnuCashSplits(ctx context.Context, db *sql.DB, b *model.Builder, logger *log.Logger) error {
	rows, err := db.QueryContext(ctx, `SELECT tx_guid, account_guid, value_num, value_denom FROM splits`)
	if err != nil {
		return fmt.Errorf("querying splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txGUID, acctGUID string
		var num, denom int64
		if err := rows.Scan(&txGUID, &acctGUID, &num, &denom); err != nil {
			return fmt.Errorf("scanning split: %w", err)
		}
		if denom == 0 {
			logger.Warn("skipping split with zero denominator", "transaction", txGUID, "account", acctGUID)
			continue
		}
		b.AddSplit(model.NewSplit(acctGUID, txGUID, big.NewRat(num, denom)))
	}
	return rows.Err()
}
