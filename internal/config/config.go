package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values balance politeness toward the queried services with
// reasonable scan times on consumer connections.
const (
	// DefaultTimeout is the per-request timeout. The queried services are
	// ordinary clearnet endpoints, so 10 seconds is generous; anything
	// slower is treated as a failed fetch and retried.
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the number of attempts per request. Transient
	// network errors and 5xx responses are retried with doubling backoff;
	// 4xx responses are never retried.
	DefaultRetries = 3

	// DefaultConcurrency is the number of search units running at once.
	// Higher values finish scans faster but look more like automated
	// traffic to the search engines.
	DefaultConcurrency = 8

	// DefaultMaxResults is the number of search engine results examined
	// per term. Results past the first page rarely mention the product.
	DefaultMaxResults = 10

	// DefaultMaxSnapshots is the number of archive snapshots fetched per
	// scan. Snapshots are spread across years, so a handful is enough to
	// establish whether the product existed historically.
	DefaultMaxSnapshots = 10

	// DefaultContextWindow is the number of characters kept on each side
	// of an identifier occurrence. 400 characters is roughly a paragraph,
	// enough for the classifier vocabulary to appear.
	DefaultContextWindow = 400

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultLanguage is the qualifier language for generated search
	// terms. Spanish matches the retail markets the default term list
	// was built for; English is always mixed in as a fallback.
	DefaultLanguage = "es"

	// AppName is the application name used for XDG directory paths.
	AppName = "eanscan"
)

// DefaultUserAgents is the built-in browser User-Agent pool. Requests
// rotate through it round-robin so repeated queries do not present a
// single fingerprint. Users can replace the pool via the .eanscan file.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Config holds all configuration options for a scan run.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant
// benefit.
type Config struct {
	// EANs is the list of identifiers to scan, already validated.
	EANs []string

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// Retries is the number of attempts per HTTP request.
	Retries int

	// Concurrency is the number of search units running at once.
	Concurrency int

	// MaxResults is the number of search engine results examined per term.
	MaxResults int

	// MaxSnapshots is the number of archive snapshots fetched per scan.
	MaxSnapshots int

	// ContextWindow is the number of characters kept on each side of an
	// identifier occurrence when extracting evidence.
	ContextWindow int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated.
	MaxBodySize int64

	// Language is the qualifier language for generated search terms
	// (BCP 47 tag). Unknown tags fall back to the nearest supported
	// language.
	Language string

	// UserAgents is the browser User-Agent pool for request rotation.
	// Empty means use DefaultUserAgents.
	UserAgents []string

	// Proxies is the list of proxy URLs rotated across requests
	// (http, https, or socks5 schemes). Empty means direct connections.
	Proxies []string

	// Sources restricts the scan to the named sources. Empty means all.
	Sources []string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport and CSVReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output with tables and a
	// classification pie chart. Mutually exclusive with JSONReport and
	// CSVReport.
	MarkdownReport bool

	// CSVReport enables flat CSV output of all findings.
	// Mutually exclusive with JSONReport and MarkdownReport.
	CSVReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written there instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches for .eanscan in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// FileConfig holds settings loaded from the .eanscan file.
	// Populated by LoadConfigFile.
	FileConfig *File

	// DBDir is the directory path for the SQLite history database.
	// When empty, scan results are not persisted.
	DBDir string

	// SaveToDB indicates whether to save scan results to the database.
	// Automatically set to true when DBDir is configured.
	SaveToDB bool

	// GlobalTimeout bounds the whole scan of one identifier. Zero means
	// no global deadline beyond per-request timeouts.
	GlobalTimeout time.Duration
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (timeouts, limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		Retries:       DefaultRetries,
		Concurrency:   DefaultConcurrency,
		MaxResults:    DefaultMaxResults,
		MaxSnapshots:  DefaultMaxSnapshots,
		ContextWindow: DefaultContextWindow,
		MaxBodySize:   DefaultMaxBodySize,
		Language:      DefaultLanguage,
		UserAgents:    DefaultUserAgents,
	}
}

// XDGDataDir returns the XDG data directory for eanscan.
// On Linux: ~/.local/share/eanscan
// On macOS: ~/Library/Application Support/eanscan
// On Windows: %LOCALAPPDATA%\eanscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for eanscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate once after CLI parsing, before any
// scanning begins, and return the first error found. Fixing one error
// often makes others irrelevant, so collecting all of them adds noise.
func (c *Config) Validate() error {
	if len(c.EANs) == 0 {
		return ErrNoEAN
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries <= 0 {
		return ErrInvalidRetries
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxResults <= 0 || c.MaxSnapshots <= 0 {
		return ErrInvalidLimit
	}

	if c.ContextWindow <= 0 {
		return ErrInvalidContextWindow
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
