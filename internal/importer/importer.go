package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/brentwalther/jcf-sub000/internal/ledger"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// Parser converts a foreign file into a Model.
type Parser interface {
	Parse(r io.Reader) (*model.Model, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a file in the import directory.
type FileInfo struct {
	Name   string
	Path   string
	Size   int64
	Format string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with the ledger, OFX and GnuCash
// parsers. ofxAccounts is passed to the OFX parser and may be nil. CSV
// parsers depend on a profile and are registered by callers.
func DefaultRegistry(logger *log.Logger, ofxAccounts map[string]string) *Registry {
	r := NewRegistry()
	r.Register(&LedgerParser{Logger: logger})
	r.Register(&OFXParser{Logger: logger, Accounts: ofxAccounts})
	r.Register(&GnuCashParser{Logger: logger})
	return r
}

// LedgerParser adapts the ledger-text parser to the Parser interface.
type LedgerParser struct {
	Logger *log.Logger
}

// Format returns the parser name.
func (p *LedgerParser) Format() string { return "ledger" }

// Parse reads ledger text.
func (p *LedgerParser) Parse(r io.Reader) (*model.Model, error) {
	return ledger.Parse(r, p.Logger)
}

// NopParser yields an empty Model. It stands in for a CSV parser whose
// field positions are not an accepted combination.
type NopParser struct {
	Name string
}

// Format returns the parser name.
func (p NopParser) Format() string { return p.Name }

// Parse discards r.
func (p NopParser) Parse(io.Reader) (*model.Model, error) {
	return model.Empty(), nil
}

var extensionFormats = map[string]string{
	".ledger":  "ledger",
	".ldg":     "ledger",
	".dat":     "ledger",
	".journal": "ledger",
	".ofx":     "ofx",
	".qfx":     "ofx",
	".gnucash": "gnucash",
	".sqlite":  "gnucash",
	".csv":     "csv",
	".tsv":     "csv",
}

// DetectFormat infers a format name from a file extension, or "".
// CSV files map to "csv"; callers pick the profile.
func DetectFormat(path string) string {
	return extensionFormats[strings.ToLower(filepath.Ext(path))]
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan lists the files in <repoRoot>/import/ that have a known format,
// sorted by name. Dotfiles and subdirectories are ignored.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		format := DetectFormat(e.Name())
		if format == "" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:   e.Name(),
			Path:   filepath.Join(dir, e.Name()),
			Size:   info.Size(),
			Format: format,
		})
	}
	return files, nil
}

// MarkProcessed moves fileName from import/ to import/processed/ and
// returns its new path. A file already processed under the same name is
// kept; the newcomer gets a numeric suffix, e.g. "bank-1.csv".
func MarkProcessed(repoRoot, fileName string) (string, error) {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	dst := filepath.Join(dstDir, fileName)
	for n := 1; ; n++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(dstDir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return dst, nil
}
