package model

import (
	"strings"
)

// Model is an immutable snapshot of accounts, transactions, and splits.
// Splits are kept in a multimap keyed by transaction ID. Transactions may
// repeat an ID; every occurrence is retained in Transactions().
type Model struct {
	accounts     []Account
	accountsByID map[string]int

	transactions     []Transaction
	transactionsByID map[string]int // last occurrence wins

	splits     map[string][]Split
	splitOrder []string
}

// Empty returns a Model with no contents.
func Empty() *Model {
	return NewBuilder().Build()
}

// Accounts returns the accounts in insertion order.
func (m *Model) Accounts() []Account {
	return append([]Account(nil), m.accounts...)
}

// Account returns the account with the given id.
func (m *Model) Account(id string) (Account, bool) {
	i, ok := m.accountsByID[id]
	if !ok {
		return Account{}, false
	}
	return m.accounts[i], true
}

// Transactions returns every transaction in insertion order, including
// repeated ids.
func (m *Model) Transactions() []Transaction {
	return append([]Transaction(nil), m.transactions...)
}

// Transaction returns the last transaction added with the given id.
func (m *Model) Transaction(id string) (Transaction, bool) {
	i, ok := m.transactionsByID[id]
	if !ok {
		return Transaction{}, false
	}
	return m.transactions[i], true
}

// Splits returns the splits recorded against a transaction id.
func (m *Model) Splits(transactionID string) []Split {
	return append([]Split(nil), m.splits[transactionID]...)
}

// SplitTransactionIDs returns the keys of the split multimap in the order
// they were first seen.
func (m *Model) SplitTransactionIDs() []string {
	return append([]string(nil), m.splitOrder...)
}

// AllSplits returns every split, grouped by transaction id in first-seen order.
func (m *Model) AllSplits() []Split {
	var out []Split
	for _, id := range m.splitOrder {
		out = append(out, m.splits[id]...)
	}
	return out
}

// NumSplits returns the total number of splits.
func (m *Model) NumSplits() int {
	n := 0
	for _, ss := range m.splits {
		n += len(ss)
	}
	return n
}

// FullName returns the colon-joined path from the account's root ancestor
// to the account. ROOT-typed ancestors are omitted. The walk is bounded by
// the number of accounts so parent cycles terminate.
func (m *Model) FullName(accountID string) string {
	acct, ok := m.Account(accountID)
	if !ok {
		return ""
	}
	names := []string{acct.Name}
	seen := map[string]bool{acct.ID: true}
	parentID := acct.ParentID
	for steps := 0; parentID != "" && steps < len(m.accounts); steps++ {
		if seen[parentID] {
			break
		}
		seen[parentID] = true
		parent, ok := m.Account(parentID)
		if !ok {
			break
		}
		if parent.Type != AccountTypeRoot {
			names = append(names, parent.Name)
		}
		parentID = parent.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ":")
}

// Builder accumulates the contents of a Model.
type Builder struct {
	m *Model
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{m: &Model{
		accountsByID:     make(map[string]int),
		transactionsByID: make(map[string]int),
		splits:           make(map[string][]Split),
	}}
}

// From returns a Builder seeded with the contents of m.
func From(m *Model) *Builder {
	b := NewBuilder()
	for _, a := range m.accounts {
		b.AddAccount(a)
	}
	for _, t := range m.transactions {
		b.AddTransaction(t)
	}
	for _, id := range m.splitOrder {
		for _, s := range m.splits[id] {
			b.AddSplit(s)
		}
	}
	return b
}

// AddAccount adds a, returning false if an account with the same id exists.
func (b *Builder) AddAccount(a Account) bool {
	if _, ok := b.m.accountsByID[a.ID]; ok {
		return false
	}
	b.m.accountsByID[a.ID] = len(b.m.accounts)
	b.m.accounts = append(b.m.accounts, a)
	return true
}

// PutAccount adds a, replacing any account with the same id. It reports
// whether an existing account was replaced.
func (b *Builder) PutAccount(a Account) bool {
	if i, ok := b.m.accountsByID[a.ID]; ok {
		b.m.accounts[i] = a
		return true
	}
	b.AddAccount(a)
	return false
}

// HasAccount reports whether an account with id has been added.
func (b *Builder) HasAccount(id string) bool {
	_, ok := b.m.accountsByID[id]
	return ok
}

// AddTransaction appends t. Repeated ids are kept.
func (b *Builder) AddTransaction(t Transaction) {
	b.m.transactionsByID[t.ID] = len(b.m.transactions)
	b.m.transactions = append(b.m.transactions, t)
}

// PutTransaction adds t, replacing any transaction with the same id. It
// reports whether an existing transaction was replaced.
func (b *Builder) PutTransaction(t Transaction) bool {
	if i, ok := b.m.transactionsByID[t.ID]; ok {
		b.m.transactions[i] = t
		return true
	}
	b.AddTransaction(t)
	return false
}

// HasTransaction reports whether a transaction with id has been added.
func (b *Builder) HasTransaction(id string) bool {
	_, ok := b.m.transactionsByID[id]
	return ok
}

// AddSplit appends s to the multimap under its transaction id.
func (b *Builder) AddSplit(s Split) {
	if _, ok := b.m.splits[s.TransactionID]; !ok {
		b.m.splitOrder = append(b.m.splitOrder, s.TransactionID)
	}
	b.m.splits[s.TransactionID] = append(b.m.splits[s.TransactionID], s)
}

// Build returns the Model. The Builder must not be used afterwards.
func (b *Builder) Build() *Model {
	m := b.m
	b.m = nil
	return m
}
