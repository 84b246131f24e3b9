package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/brentwalther/jcf-sub000/internal/importer"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// FileName is the config file name at the repo root.
const FileName = "jcf.yaml"

// Config represents the top-level jcf.yaml configuration.
type Config struct {
	Ledger      LedgerConfig      `yaml:"ledger"`
	CSVProfiles []CSVProfile      `yaml:"csv_profiles,omitempty"`
	OFXAccounts map[string]string `yaml:"ofx_accounts,omitempty"`
	Matcher     MatcherConfig     `yaml:"matcher"`
	Log         LogConfig         `yaml:"log"`
	Git         GitConfig         `yaml:"git"`
}

// LedgerConfig identifies the ledger.
type LedgerConfig struct {
	Name     string `yaml:"name"`
	Chart    string `yaml:"chart"`    // default chart style used by init
	Currency string `yaml:"currency"` // ISO 4217 code used for display
}

// CSVProfile describes one bank's CSV export.
type CSVProfile struct {
	Name       string `yaml:"name"`
	DateFormat string `yaml:"date_format"` // Go time layout, e.g. "01/02/2006"
	// Account receives every row's split. When the account_identifier
	// field is mapped, the row's identifier is appended as a subaccount.
	Account string         `yaml:"account"`
	Fields  map[string]int `yaml:"fields"`
}

// MatcherConfig tunes reconciliation.
type MatcherConfig struct {
	DuplicateWindowDays int     `yaml:"duplicate_window_days"`
	MaxMatches          int     `yaml:"max_matches"`
	AutoAccept          float64 `yaml:"auto_accept"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Path returns the config location under a repo root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, FileName)
}

// Load reads a jcf.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(name string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Name:     name,
			Chart:    "household",
			Currency: "USD",
		},
		CSVProfiles: []CSVProfile{
			{
				Name:       "chase",
				DateFormat: "01/02/2006",
				Account:    "Liabilities:Credit Cards:Chase",
				Fields:     map[string]int{"date": 1, "description": 2, "amount": 3},
			},
			{
				Name:       "checking",
				DateFormat: "2006-01-02",
				Account:    "Assets:Checking",
				Fields:     map[string]int{"date": 0, "description": 1, "debit": 2, "credit": 3},
			},
		},
		Matcher: MatcherConfig{
			DuplicateWindowDays: 7,
			MaxMatches:          5,
			AutoAccept:          0.5,
		},
		Log: LogConfig{Level: "info"},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "jcf",
			AuthorEmail: "jcf@localhost",
		},
	}
}

// Profile returns the CSV profile with the given name.
func (c *Config) Profile(name string) (CSVProfile, bool) {
	for _, p := range c.CSVProfiles {
		if p.Name == name {
			return p, true
		}
	}
	return CSVProfile{}, false
}

// DuplicateWindow converts DuplicateWindowDays, defaulting to seven days.
func (m MatcherConfig) DuplicateWindow() time.Duration {
	days := m.DuplicateWindowDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// Positions converts the named field mapping.
func (p CSVProfile) Positions() (importer.FieldPositions, error) {
	fp, err := importer.ParseFieldPositions(p.Fields)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return fp, nil
}

// Valid reports whether the profile's fields form an accepted combination
// and the profile names a date format and account.
func (p CSVProfile) Valid() error {
	fp, err := p.Positions()
	if err != nil {
		return err
	}
	if !fp.Accepted() {
		return fmt.Errorf("profile %s: fields %s are not an accepted combination", p.Name, fp)
	}
	if p.DateFormat == "" {
		return fmt.Errorf("profile %s: date_format is required", p.Name)
	}
	if p.Account == "" {
		return fmt.Errorf("profile %s: account is required", p.Name)
	}
	return nil
}

// AccountGenerator returns the account for a row's identifier: Account
// itself when the identifier is empty, else a subaccount named by it.
func (p CSVProfile) AccountGenerator() importer.AccountGenerator {
	return func(identifier string) model.Account {
		name := p.Account
		if identifier != "" {
			name += ":" + identifier
		}
		return model.Account{ID: name, Name: name, Type: model.AccountTypeUnknown}
	}
}

// Parser builds the profile's CSV parser. An unknown field name is an
// error; a field combination that is not accepted yields a no-op parser.
func (p CSVProfile) Parser(logger *log.Logger) (importer.Parser, error) {
	fp, err := p.Positions()
	if err != nil {
		return nil, err
	}
	return importer.NewCSVParser(p.Name, fp, p.DateFormat, p.AccountGenerator(), logger), nil
}
