package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brentwalther/jcf-sub000/internal/importer"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household")
	cfg.OFXAccounts = map[string]string{"4111222233334444": "Liabilities:Credit Cards:Visa"}

	path := Path(t.TempDir())
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Household")

	assert.Equal(t, "Household", cfg.Ledger.Name)
	assert.Equal(t, "household", cfg.Ledger.Chart)
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Equal(t, 7, cfg.Matcher.DuplicateWindowDays)
	assert.Equal(t, 5, cfg.Matcher.MaxMatches)
	assert.InDelta(t, 0.5, cfg.Matcher.AutoAccept, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Git.AutoCommit)

	for _, p := range cfg.CSVProfiles {
		assert.NoError(t, p.Valid(), p.Name)
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadYAML(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("matcher: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestYAMLFormat(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, Save(path, Default("Test Ledger")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Ledger")
	assert.Contains(t, contents, "date_format: 01/02/2006")
	assert.Contains(t, contents, "duplicate_window_days: 7")
	assert.Contains(t, contents, "auto_commit: true")
	assert.NotContains(t, contents, "ofx_accounts")
}

func TestProfile(t *testing.T) {
	cfg := Default("x")
	p, ok := cfg.Profile("chase")
	require.True(t, ok)
	assert.Equal(t, "Liabilities:Credit Cards:Chase", p.Account)

	_, ok = cfg.Profile("amex")
	assert.False(t, ok)
}

func TestDuplicateWindow(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, MatcherConfig{}.DuplicateWindow())
	assert.Equal(t, 3*24*time.Hour, MatcherConfig{DuplicateWindowDays: 3}.DuplicateWindow())
}

func TestCSVProfile_Valid(t *testing.T) {
	base := CSVProfile{Name: "p", DateFormat: "2006-01-02", Account: "Assets:Checking"}
	tests := []struct {
		name    string
		fields  map[string]int
		mutate  func(*CSVProfile)
		wantErr string
	}{
		{name: "amount", fields: map[string]int{"date": 0, "description": 1, "amount": 2}},
		{name: "identifier", fields: map[string]int{"date": 0, "description": 1, "negated_amount": 2, "account_identifier": 3}},
		{name: "unknown field", fields: map[string]int{"date": 0, "memo": 1}, wantErr: "unknown CSV field"},
		{name: "incomplete", fields: map[string]int{"date": 0, "description": 1, "credit": 2}, wantErr: "not an accepted combination"},
		{name: "no date format", fields: map[string]int{"date": 0, "description": 1, "amount": 2},
			mutate: func(p *CSVProfile) { p.DateFormat = "" }, wantErr: "date_format"},
		{name: "no account", fields: map[string]int{"date": 0, "description": 1, "amount": 2},
			mutate: func(p *CSVProfile) { p.Account = "" }, wantErr: "account is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Fields = tt.fields
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			err := p.Valid()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCSVProfile_AccountGenerator(t *testing.T) {
	gen := CSVProfile{Account: "Assets:Bank"}.AccountGenerator()
	assert.Equal(t, model.Account{ID: "Assets:Bank", Name: "Assets:Bank", Type: model.AccountTypeUnknown}, gen(""))
	assert.Equal(t, "Assets:Bank:1234", gen("1234").ID)
}

func TestCSVProfile_Parser(t *testing.T) {
	cfg := Default("x")
	p, _ := cfg.Profile("chase")
	parser, err := p.Parser(log.New(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, "csv:chase", parser.Format())

	m, err := parser.Parse(strings.NewReader("Details,Posting Date,Description,Amount\nDEBIT,01/03/2025,GITHUB,-4.00\n"))
	require.NoError(t, err)
	require.Len(t, m.AllSplits(), 1)
	assert.Equal(t, "Liabilities:Credit Cards:Chase", m.AllSplits()[0].AccountID)

	bad := CSVProfile{Name: "bad", Fields: map[string]int{"date": 0}}
	parser, err = bad.Parser(log.New(&bytes.Buffer{}))
	require.NoError(t, err)
	_, isNop := parser.(importer.NopParser)
	assert.True(t, isNop)

	_, err = CSVProfile{Name: "worse", Fields: map[string]int{"when": 0}}.Parser(nil)
	assert.Error(t, err)
}
