// Package merge combines two Models into one.
package merge

import (
	"github.com/charmbracelet/log"

	"github.com/brentwalther/jcf-sub000/internal/id"
	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Options configures Merge.
type Options struct {
	Logger *log.Logger
}

// DroppedSplit is a split left out of a merge because a reference did not
// resolve.
type DroppedSplit struct {
	Split              model.Split
	MissingAccount     bool
	MissingTransaction bool
}

// Report lists what Merge changed or rejected. Everything in it was also
// logged as a warning.
type Report struct {
	OverwrittenAccounts     []string
	OverwrittenTransactions []string
	Dropped                 []DroppedSplit
	Unbalanced              []string
}

// Merge unions base and incoming. Accounts and transactions are keyed by
// id; an empty id is replaced by a hash of the entity's content. base is
// applied before incoming, so on an id collision with different content
// the incoming entity wins. Splits are unioned as multisets: a split value
// occurring n times in one input and m times in the other occurs max(n, m)
// times in the result. Splits whose account or transaction does not
// resolve are dropped, and transactions that do not sum to zero are
// reported but kept.
func Merge(base, incoming *model.Model, opts Options) (*model.Model, Report) {
	logger := logging.OrDefault(opts.Logger).WithPrefix("merge")
	sources := []*model.Model{base, incoming}
	var report Report
	b := model.NewBuilder()

	accounts := make(map[string]model.Account)
	var accountOrder []string
	for _, src := range sources {
		for _, a := range src.Accounts() {
			if a.ID == "" {
				a.ID = id.Content(a.Key())
				logger.Debug("assigned account id", "account", a.Name, "id", a.ID)
			}
			prev, ok := accounts[a.ID]
			if !ok {
				accountOrder = append(accountOrder, a.ID)
			} else if prev != a {
				logger.Warn("overwriting account", "id", a.ID, "was", prev.Name, "now", a.Name)
				report.OverwrittenAccounts = append(report.OverwrittenAccounts, a.ID)
			}
			accounts[a.ID] = a
		}
	}
	for _, accountID := range accountOrder {
		b.AddAccount(accounts[accountID])
	}

	txns := unionTransactions(sources, logger, &report)
	for _, slot := range txns.order {
		for i := 0; i < slot.count; i++ {
			b.AddTransaction(slot.txn)
		}
	}

	splits := unionSplits(sources)
	for _, s := range splits {
		_, hasAccount := accounts[s.AccountID]
		_, hasTxn := txns.byID[s.TransactionID]
		if hasAccount && hasTxn {
			b.AddSplit(s)
			continue
		}
		d := DroppedSplit{Split: s, MissingAccount: !hasAccount, MissingTransaction: !hasTxn}
		logger.Warn("dropping split with dangling reference",
			"transaction", s.TransactionID, "account", s.AccountID,
			"missing_account", d.MissingAccount, "missing_transaction", d.MissingTransaction)
		report.Dropped = append(report.Dropped, d)
	}

	merged := b.Build()
	for _, txnID := range merged.SplitTransactionIDs() {
		ss := merged.Splits(txnID)
		if !model.AreBalanced(ss) {
			logger.Warn("transaction does not balance", "transaction", txnID, "sum", model.Sum(ss).RatString())
			report.Unbalanced = append(report.Unbalanced, txnID)
		}
	}
	logger.Debug("merged",
		"accounts", len(merged.Accounts()), "transactions", len(merged.Transactions()),
		"splits", merged.NumSplits(), "dropped", len(report.Dropped))
	return merged, report
}

type txnSlot struct {
	txn   model.Transaction
	count int
}

type txnUnion struct {
	byID  map[string]*txnSlot
	order []*txnSlot
}

// unionTransactions keys transactions by id. A source may repeat an id;
// the result repeats it as often as the source that repeats it most.
func unionTransactions(sources []*model.Model, logger *log.Logger, report *Report) txnUnion {
	u := txnUnion{byID: make(map[string]*txnSlot)}
	for _, src := range sources {
		counts := make(map[string]int)
		for _, t := range src.Transactions() {
			if t.ID == "" {
				t.ID = id.Content(t.Key())
				logger.Debug("assigned transaction id", "description", t.Description, "id", t.ID)
			}
			counts[t.ID]++
			slot, ok := u.byID[t.ID]
			if !ok {
				slot = &txnSlot{txn: t}
				u.byID[t.ID] = slot
				u.order = append(u.order, slot)
			} else if slot.txn != t {
				logger.Warn("overwriting transaction", "id", t.ID,
					"was", slot.txn.Description, "now", t.Description)
				report.OverwrittenTransactions = append(report.OverwrittenTransactions, t.ID)
				slot.txn = t
			}
			if counts[t.ID] > slot.count {
				slot.count = counts[t.ID]
			}
		}
	}
	return u
}

func unionSplits(sources []*model.Model) []model.Split {
	merged := make(map[model.Split]int)
	var order []model.Split
	for _, src := range sources {
		counts := make(map[model.Split]int)
		for _, s := range src.AllSplits() {
			counts[s]++
		}
		for _, s := range src.AllSplits() {
			n, seen := merged[s]
			if !seen {
				order = append(order, s)
			}
			if counts[s] > n {
				merged[s] = counts[s]
			}
		}
	}
	var out []model.Split
	for _, s := range order {
		for i := 0; i < merged[s]; i++ {
			out = append(out, s)
		}
	}
	return out
}
