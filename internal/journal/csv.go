package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Header is the CSV header for journal.csv.
const Header = "transaction_id,date,description,account_id,amount,amount_num,amount_denom"

const (
	numFields   = 7
	dateFormat  = "2006-01-02"
	colTxnID    = 0
	colDate     = 1
	colDesc     = 2
	colAcctID   = 3
	colAmount   = 4
	colAmtNum   = 5
	colAmtDenom = 6
)

// Row is one line of journal.csv: a transaction and, unless the
// transaction has no splits, one of its splits.
type Row struct {
	Transaction model.Transaction
	Split       model.Split
	HasSplit    bool
}

// ReadRows reads all rows from a journal.csv reader.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRows writes rows to a journal.csv writer (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, row := range rows {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a Row to a CSV record. A row without a split carries
// an empty account and a zero amount.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colTxnID] = row.Transaction.ID
	rec[colDate] = formatDate(row.Transaction.PostDate())
	rec[colDesc] = row.Transaction.Description

	if !row.HasSplit {
		rec[colAmount] = "0"
		rec[colAmtNum] = "0"
		rec[colAmtDenom] = "1"
		return rec
	}
	rec[colAcctID] = row.Split.AccountID
	rec[colAmount] = row.Split.Decimal().String()
	rec[colAmtNum] = strconv.FormatInt(row.Split.ValueNumerator, 10)
	rec[colAmtDenom] = strconv.FormatInt(row.Split.ValueDenominator, 10)
	return rec
}

// UnmarshalRow converts a CSV record to a Row. When amount_num and
// amount_denom are both empty the split is built from the decimal amount
// column, which lets hand-edited rows omit them.
func UnmarshalRow(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colTxnID] == "" {
		return Row{}, fmt.Errorf("empty transaction_id")
	}

	date, err := parseDate(record[colDate])
	if err != nil {
		return Row{}, err
	}
	row := Row{Transaction: model.NewTransaction(record[colTxnID], date, record[colDesc])}
	if record[colAcctID] == "" {
		return row, nil
	}

	split, err := unmarshalSplit(record)
	if err != nil {
		return Row{}, err
	}
	row.Split = split
	row.HasSplit = true
	return row, nil
}

func unmarshalSplit(record []string) (model.Split, error) {
	acct, txn := record[colAcctID], record[colTxnID]

	var amount decimal.Decimal
	hasAmount := record[colAmount] != ""
	if hasAmount {
		var err error
		amount, err = decimal.NewFromString(record[colAmount])
		if err != nil {
			return model.Split{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
		}
	}

	if record[colAmtNum] == "" && record[colAmtDenom] == "" {
		if !hasAmount {
			return model.Split{}, fmt.Errorf("split for account %q has no amount", acct)
		}
		return model.MakeSplit(acct, txn, amount.Rat())
	}

	num, err := strconv.ParseInt(record[colAmtNum], 10, 64)
	if err != nil {
		return model.Split{}, fmt.Errorf("parsing amount_num %q: %w", record[colAmtNum], err)
	}
	denom, err := strconv.ParseInt(record[colAmtDenom], 10, 64)
	if err != nil {
		return model.Split{}, fmt.Errorf("parsing amount_denom %q: %w", record[colAmtDenom], err)
	}
	if denom <= 0 {
		return model.Split{}, fmt.Errorf("amount_denom must be positive, got %d", denom)
	}

	split := model.Split{AccountID: acct, TransactionID: txn, ValueNumerator: num, ValueDenominator: denom}
	if hasAmount && !split.Decimal().Equal(amount) {
		return model.Split{}, fmt.Errorf("amount %s disagrees with %d/%d", amount, num, denom)
	}
	return split, nil
}

// formatDate writes midnight UTC as a plain date and anything else in
// RFC 3339.
func formatDate(t time.Time) string {
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(dateFormat)
	}
	return t.Format(time.RFC3339)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateFormat, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
