package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Service is the chart of accounts: the typed, parented accounts a
// repository knows about, indexed by id.
type Service struct {
	accounts []model.Account
	index    map[string]int
}

// NewService creates a Service over accounts. A repeated id keeps the
// last definition.
func NewService(accounts []model.Account) *Service {
	s := &Service{index: make(map[string]int, len(accounts))}
	for _, a := range accounts {
		if i, ok := s.index[a.ID]; ok {
			s.accounts[i] = a
			continue
		}
		s.index[a.ID] = len(s.accounts)
		s.accounts = append(s.accounts, a)
	}
	return s
}

// Path returns the chart of accounts location under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, "accounts", "chart-of-accounts.csv")
}

// Load reads the chart under repoRoot. A missing file yields an empty chart.
func Load(repoRoot string) (*Service, error) {
	f, err := os.Open(Path(repoRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return NewService(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns the accounts in chart order.
func (s *Service) All() []model.Account {
	return append([]model.Account(nil), s.accounts...)
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Account{}, false
	}
	return s.accounts[i], true
}

// ByType returns the accounts of one type in chart order.
func (s *Service) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// Adopt returns incoming without the UNKNOWN-typed accounts whose ids the
// chart already defines. Parsers that only see account names, such as
// the ledger and CSV parsers, produce such accounts; dropping them lets
// a later merge keep the chart's type and parent. Transactions and
// splits pass through unchanged.
func (s *Service) Adopt(incoming *model.Model) *model.Model {
	b := model.NewBuilder()
	for _, a := range incoming.Accounts() {
		if _, known := s.Get(a.ID); known && a.Type == model.AccountTypeUnknown {
			continue
		}
		b.AddAccount(a)
	}
	for _, t := range incoming.Transactions() {
		b.AddTransaction(t)
	}
	for _, sp := range incoming.AllSplits() {
		b.AddSplit(sp)
	}
	return b.Build()
}

// Save writes the chart to accounts/chart-of-accounts.csv under repoRoot.
func (s *Service) Save(repoRoot string) error {
	path := Path(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating accounts dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, s.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
