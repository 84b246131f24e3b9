package journal

import (
	"fmt"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Invariants checked by Validate.
const (
	InvariantBalanced       = 1 // splits of a transaction sum to zero
	InvariantAccountRef     = 2 // split account exists
	InvariantTransactionRef = 3 // split transaction exists
	InvariantDenominator    = 4 // split denominator is positive
	InvariantParentRef      = 5 // account parent exists
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	Subject     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.Subject, e.Description)
}

// Validate checks m against the ledger invariants. It never stops at the
// first problem; every violation found is returned.
func Validate(m *model.Model) []ValidationError {
	var errs []ValidationError

	for _, txnID := range m.SplitTransactionIDs() {
		splits := m.Splits(txnID)
		if _, ok := m.Transaction(txnID); !ok {
			errs = append(errs, ValidationError{
				Invariant:   InvariantTransactionRef,
				Subject:     txnID,
				Description: fmt.Sprintf("%d split(s) reference an unknown transaction", len(splits)),
			})
		}

		denominatorsOK := true
		for _, s := range splits {
			if _, ok := m.Account(s.AccountID); !ok {
				errs = append(errs, ValidationError{
					Invariant:   InvariantAccountRef,
					Subject:     txnID,
					Description: fmt.Sprintf("unknown account %q", s.AccountID),
				})
			}
			if s.ValueDenominator <= 0 {
				denominatorsOK = false
				errs = append(errs, ValidationError{
					Invariant:   InvariantDenominator,
					Subject:     txnID,
					Description: fmt.Sprintf("split for %q has denominator %d", s.AccountID, s.ValueDenominator),
				})
			}
		}

		if denominatorsOK && !model.AreBalanced(splits) {
			errs = append(errs, ValidationError{
				Invariant:   InvariantBalanced,
				Subject:     txnID,
				Description: fmt.Sprintf("splits sum to %s", model.Sum(splits).RatString()),
			})
		}
	}

	accts := m.Accounts()
	for _, a := range accts {
		if a.ParentID == "" {
			continue
		}
		if _, ok := m.Account(a.ParentID); !ok {
			errs = append(errs, ValidationError{
				Invariant:   InvariantParentRef,
				Subject:     a.ID,
				Description: fmt.Sprintf("unknown parent %q", a.ParentID),
			})
		}
	}

	return errs
}

// ParentCycles returns the ids of accounts that are their own ancestor.
// Cycles are tolerated, so Validate does not report them.
func ParentCycles(m *model.Model) []string {
	accts := m.Accounts()
	var ids []string
	for _, a := range accts {
		if inCycle(m, a, len(accts)) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// inCycle reports whether walking a's parents leads back to a.
func inCycle(m *model.Model, a model.Account, limit int) bool {
	parentID := a.ParentID
	for steps := 0; parentID != "" && steps < limit; steps++ {
		if parentID == a.ID {
			return true
		}
		parent, ok := m.Account(parentID)
		if !ok {
			return false
		}
		parentID = parent.ParentID
	}
	return false
}
