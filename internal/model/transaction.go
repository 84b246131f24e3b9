package model

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single economic event.
type Transaction struct {
	ID                  string
	PostDateEpochSecond int64
	Description         string
}

// NewTransaction builds a Transaction posted at t.
func NewTransaction(id string, t time.Time, description string) Transaction {
	return Transaction{ID: id, PostDateEpochSecond: t.Unix(), Description: description}
}

// PostDate returns the post date in UTC.
func (t Transaction) PostDate() time.Time {
	return time.Unix(t.PostDateEpochSecond, 0).UTC()
}

// Key returns the serialized form of the transaction used for content hashing.
func (t Transaction) Key() []byte {
	return []byte(strings.Join([]string{
		"transaction", t.ID, strconv.FormatInt(t.PostDateEpochSecond, 10), t.Description,
	}, "\x1f"))
}

// Split assigns ValueNumerator/ValueDenominator of a Transaction to an Account.
// ValueDenominator is always positive.
type Split struct {
	AccountID        string
	TransactionID    string
	ValueNumerator   int64
	ValueDenominator int64
}

// ErrAmountRange is returned for amounts whose reduced numerator or
// denominator does not fit in an int64.
var ErrAmountRange = errors.New("amount out of range")

// MakeSplit builds a Split whose value is r, reduced to lowest terms.
func MakeSplit(accountID, transactionID string, r *big.Rat) (Split, error) {
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Split{}, fmt.Errorf("%w: %s", ErrAmountRange, r.RatString())
	}
	return Split{
		AccountID:        accountID,
		TransactionID:    transactionID,
		ValueNumerator:   r.Num().Int64(),
		ValueDenominator: r.Denom().Int64(),
	}, nil
}

// NewSplit is MakeSplit for amounts known to fit. It panics otherwise.
func NewSplit(accountID, transactionID string, r *big.Rat) Split {
	s, err := MakeSplit(accountID, transactionID, r)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSplitFromDecimal builds a Split from a decimal amount, gcd-normalized.
// It panics if the amount does not fit.
func NewSplitFromDecimal(accountID, transactionID string, d decimal.Decimal) Split {
	return NewSplit(accountID, transactionID, d.Rat())
}

// Amount returns the split value as an exact rational.
func (s Split) Amount() *big.Rat {
	den := s.ValueDenominator
	if den == 0 {
		den = 1
	}
	return big.NewRat(s.ValueNumerator, den)
}

// Decimal returns the split value as a decimal rounded to 8 places. The
// result is exact whenever the denominator divides a power of ten.
func (s Split) Decimal() decimal.Decimal {
	den := s.ValueDenominator
	if den == 0 {
		den = 1
	}
	return decimal.NewFromInt(s.ValueNumerator).DivRound(decimal.NewFromInt(den), 8)
}

// SameAmount reports whether s and o carry exactly the same value,
// regardless of how each fraction is reduced.
func (s Split) SameAmount(o Split) bool {
	return s.Amount().Cmp(o.Amount()) == 0
}

// Sum returns the exact sum of the split amounts.
func Sum(splits []Split) *big.Rat {
	total := new(big.Rat)
	for _, s := range splits {
		total.Add(total, s.Amount())
	}
	return total
}

// AreBalanced reports whether the splits sum to zero.
func AreBalanced(splits []Split) bool {
	return Sum(splits).Sign() == 0
}
