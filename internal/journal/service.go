package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/brentwalther/jcf-sub000/internal/accounts"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Service persists a Model under a repo root: accounts in the chart of
// accounts, transactions and splits in one journal.csv per posting month.
type Service struct {
	repoRoot string
}

// NewService creates a journal Service.
func NewService(repoRoot string) *Service {
	return &Service{repoRoot: repoRoot}
}

// Load reads the chart of accounts and every month's journal into a Model.
func (s *Service) Load() (*model.Model, error) {
	chart, err := accounts.Load(s.repoRoot)
	if err != nil {
		return nil, err
	}

	paths, err := s.monthPaths()
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, path := range paths {
		monthRows, err := readFile(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, monthRows...)
	}
	return BuildModel(chart.All(), rows), nil
}

// Save writes m, replacing whatever was stored before. It fails without
// writing anything if a split's transaction is missing from m.
func (s *Service) Save(m *model.Model) error {
	rows, err := Rows(m)
	if err != nil {
		return err
	}

	byMonth := make(map[string][]Row)
	for _, r := range rows {
		d := r.Transaction.PostDate()
		path := s.monthPath(d.Year(), int(d.Month()))
		byMonth[path] = append(byMonth[path], r)
	}

	if err := accounts.NewService(m.Accounts()).Save(s.repoRoot); err != nil {
		return err
	}

	existing, err := s.monthPaths()
	if err != nil {
		return err
	}
	for _, path := range existing {
		if _, ok := byMonth[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing stale journal %s: %w", path, err)
		}
	}

	for path, monthRows := range byMonth {
		if err := writeFile(path, monthRows); err != nil {
			return err
		}
	}
	return nil
}

// ReadMonth reads all rows for a given year/month.
func (s *Service) ReadMonth(year, month int) ([]Row, error) {
	return readFile(s.monthPath(year, month))
}

// Rows flattens m into journal rows ordered by post date then transaction
// id. Transactions that repeat an id are written once.
func Rows(m *model.Model) ([]Row, error) {
	var rows []Row
	written := make(map[string]bool)
	for _, t := range m.Transactions() {
		if written[t.ID] {
			continue
		}
		written[t.ID] = true
		splits := m.Splits(t.ID)
		if len(splits) == 0 {
			rows = append(rows, Row{Transaction: t})
			continue
		}
		for _, sp := range splits {
			rows = append(rows, Row{Transaction: t, Split: sp, HasSplit: true})
		}
	}
	for _, txnID := range m.SplitTransactionIDs() {
		if !written[txnID] {
			return nil, fmt.Errorf("splits reference missing transaction %q", txnID)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Transaction, rows[j].Transaction
		if a.PostDateEpochSecond != b.PostDateEpochSecond {
			return a.PostDateEpochSecond < b.PostDateEpochSecond
		}
		return a.ID < b.ID
	})
	return rows, nil
}

// BuildModel assembles a Model from a chart and journal rows. The first
// row for a transaction id supplies the transaction.
func BuildModel(chart []model.Account, rows []Row) *model.Model {
	b := model.NewBuilder()
	for _, a := range chart {
		b.AddAccount(a)
	}
	for _, r := range rows {
		if !b.HasTransaction(r.Transaction.ID) {
			b.AddTransaction(r.Transaction)
		}
		if r.HasSplit {
			b.AddSplit(r.Split)
		}
	}
	return b.Build()
}

func (s *Service) monthPath(year, month int) string {
	return filepath.Join(s.repoRoot, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), "journal.csv")
}

// monthPaths returns every YYYY/MM/journal.csv under the repo root, sorted.
func (s *Service) monthPaths() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.repoRoot, "[0-9][0-9][0-9][0-9]", "[0-1][0-9]", "journal.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func readFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return rows, nil
}

func writeFile(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating journal %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteRows(f, rows); err != nil {
		return fmt.Errorf("writing journal %s: %w", path, err)
	}
	return nil
}
