package model

import "strings"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeRoot      AccountType = "ROOT"
	AccountTypeUnknown   AccountType = "UNKNOWN"
)

// AccountTypes lists every AccountType in declaration order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
	AccountTypeRoot,
	AccountTypeUnknown,
}

// ParseAccountType returns the AccountType named by s (case-insensitive),
// or AccountTypeUnknown.
func ParseAccountType(s string) AccountType {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t
		}
	}
	return AccountTypeUnknown
}

// Account is a node in the account forest. ParentID is empty for roots.
type Account struct {
	ID       string
	Name     string
	Type     AccountType
	ParentID string
}

// Key returns the serialized form of the account used for content hashing.
func (a Account) Key() []byte {
	return []byte(strings.Join([]string{"account", a.ID, a.Name, string(a.Type), a.ParentID}, "\x1f"))
}
