// Package matcher proposes counter-accounts for newly imported
// transactions by comparing their descriptions against the history of an
// existing Model, and flags imports that look like duplicates.
//
// A Matcher is not safe for concurrent use: Link must not run alongside
// TopMatches without external synchronization.
package matcher

import (
	"math/big"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// DefaultDuplicateWindow is the post-date distance under which two equal
// splits against the same account are considered the same event.
const DefaultDuplicateWindow = 7 * 24 * time.Hour

// MatchType distinguishes duplicate warnings from account proposals.
type MatchType string

const (
	ProbableDuplicate MatchType = "PROBABLE_DUPLICATE"
	PartialConfidence MatchType = "PARTIAL_CONFIDENCE"
)

// Match is one proposal returned by TopMatches.
type Match struct {
	Type MatchType

	// Account and Confidence are set for PartialConfidence matches.
	Account    model.Account
	Confidence float64

	// Duplicates holds the historical splits a ProbableDuplicate match
	// collides with.
	Duplicates []model.Split
}

// Options tunes a Matcher.
type Options struct {
	// DuplicateWindow defaults to DefaultDuplicateWindow.
	DuplicateWindow time.Duration
	// MaxMatches caps the partial-confidence matches returned; 0 means no cap.
	MaxMatches int
	Logger     *log.Logger
}

// Matcher holds an inverted index from sanitized description tokens to
// the historical splits whose transactions produced them.
type Matcher struct {
	opts   Options
	logger *log.Logger

	accounts     map[string]model.Account
	transactions map[string]model.Transaction
	// linked holds transactions first seen through Link.
	linked map[string]model.Transaction

	index   map[string]map[model.Split]struct{}
	indexed map[model.Split]struct{}
	order   []model.Split
}

// New builds a Matcher over every split in m. It panics if a split
// references an account that m does not contain.
func New(m *model.Model, opts Options) *Matcher {
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = DefaultDuplicateWindow
	}
	mt := &Matcher{
		opts:         opts,
		logger:       logging.OrDefault(opts.Logger).WithPrefix("matcher"),
		accounts:     make(map[string]model.Account),
		transactions: make(map[string]model.Transaction),
		linked:       make(map[string]model.Transaction),
		index:        make(map[string]map[model.Split]struct{}),
		indexed:      make(map[model.Split]struct{}),
	}
	for _, a := range m.Accounts() {
		mt.accounts[a.ID] = a
	}
	for _, t := range m.Transactions() {
		mt.transactions[t.ID] = t
	}
	for _, txnID := range m.SplitTransactionIDs() {
		txn, ok := m.Transaction(txnID)
		if !ok {
			mt.logger.Warn("splits reference a missing transaction; not indexed", "transaction", txnID)
			continue
		}
		for _, s := range m.Splits(txnID) {
			mt.Link(txn, s)
		}
	}
	mt.logger.Debug("index built", "splits", len(mt.order), "keys", len(mt.index))
	return mt
}

// RegisterAccount makes an account known so later Links may reference it.
func (mt *Matcher) RegisterAccount(a model.Account) {
	mt.accounts[a.ID] = a
}

// Link records the pair in the index. Linking the same split twice is a
// no-op. It panics if the split's account is unknown.
func (mt *Matcher) Link(txn model.Transaction, s model.Split) {
	if _, ok := mt.accounts[s.AccountID]; !ok {
		panic(errors.Errorf("matcher: split of transaction %q references unknown account %q", s.TransactionID, s.AccountID))
	}
	if _, ok := mt.transactions[txn.ID]; !ok {
		mt.linked[txn.ID] = txn
	}
	if _, ok := mt.indexed[s]; ok {
		return
	}
	mt.indexed[s] = struct{}{}
	mt.order = append(mt.order, s)

	for _, key := range indexKeys(txn.Description) {
		set, ok := mt.index[key]
		if !ok {
			set = make(map[model.Split]struct{})
			mt.index[key] = set
		}
		set[s] = struct{}{}
	}
}

// indexKeys returns the tokens of the sanitized description followed by
// the whole sanitized description when it has more than one token.
func indexKeys(description string) []string {
	tokens := Tokens(description)
	if len(tokens) > 1 {
		return append(tokens, Sanitize(description))
	}
	return tokens
}

// NumIndexed returns the number of distinct splits in the index.
func (mt *Matcher) NumIndexed() int {
	return len(mt.order)
}

func (mt *Matcher) transaction(id string) (model.Transaction, bool) {
	if t, ok := mt.transactions[id]; ok {
		return t, true
	}
	t, ok := mt.linked[id]
	return t, ok
}

// TopMatches returns, most confident first, the proposals for txn whose
// current splits are given. A ProbableDuplicate match, if any, comes
// first. exclude may be nil; accounts it accepts are left out of the
// partial-confidence matches.
func (mt *Matcher) TopMatches(txn model.Transaction, splits []model.Split, exclude func(model.Account) bool) []Match {
	var matches []Match
	if dups := mt.duplicates(txn, splits); len(dups) > 0 {
		matches = append(matches, Match{Type: ProbableDuplicate, Duplicates: dups})
	}
	return append(matches, mt.partialMatches(txn, exclude)...)
}

func (mt *Matcher) duplicates(txn model.Transaction, splits []model.Split) []model.Split {
	var dups []model.Split
	for _, h := range mt.order {
		// Same id means same transaction; replaying it is not a duplicate.
		if h.TransactionID == txn.ID {
			continue
		}
		ht, ok := mt.transaction(h.TransactionID)
		if !ok {
			continue
		}
		gap := txn.PostDate().Sub(ht.PostDate())
		if gap < 0 {
			gap = -gap
		}
		if gap >= mt.opts.DuplicateWindow {
			continue
		}
		for _, s := range splits {
			if s.AccountID == h.AccountID && s.SameAmount(h) {
				dups = append(dups, h)
				break
			}
		}
	}
	return dups
}

func (mt *Matcher) partialMatches(txn model.Transaction, exclude func(model.Account) bool) []Match {
	if len(mt.order) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, key := range indexKeys(txn.Description) {
		for s := range mt.index[key] {
			counts[s.AccountID]++
		}
	}

	total := float64(len(mt.order))
	var matches []Match
	for acctID, n := range counts {
		acct := mt.accounts[acctID]
		if exclude != nil && exclude(acct) {
			continue
		}
		matches = append(matches, Match{
			Type:       PartialConfidence,
			Account:    acct,
			Confidence: float64(n) / total,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Account.ID < matches[j].Account.ID
	})
	if mt.opts.MaxMatches > 0 && len(matches) > mt.opts.MaxMatches {
		matches = matches[:mt.opts.MaxMatches]
	}
	return matches
}

// BalancingSplit returns the split that books the negated sum of splits
// against account, making the transaction balance.
func BalancingSplit(txnID string, splits []model.Split, account model.Account) (model.Split, error) {
	return model.MakeSplit(account.ID, txnID, new(big.Rat).Neg(model.Sum(splits)))
}
