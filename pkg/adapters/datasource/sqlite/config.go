package sqlite

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// RequiredFields must be present before a connection is attempted.
var RequiredFields = []string{"database"}

// MemoryDatabase opens a shared in-memory database.
const MemoryDatabase = ":memory:"

// Config contains SQLite connection options.
type Config struct {
	Database    string // File path or ":memory:"
	Mode        string // "", "ro", "rw", "rwc"
	BusyTimeout time.Duration
	ForeignKeys bool
	JournalMode string // "", "WAL", "DELETE", ...
}

// FromMap creates a Config from connection params.
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindSQLite)

	if missing := params.Missing(RequiredFields); len(missing) > 0 {
		return nil, apperrors.MissingParameters(kind, missing)
	}

	cfg := &Config{}
	var err error

	if cfg.Database, err = params.String("database", ""); err != nil {
		return nil, err
	}
	if cfg.Mode, err = params.String("mode", ""); err != nil {
		return nil, err
	}
	if cfg.BusyTimeout, err = params.Duration("busy_timeout", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ForeignKeys, err = params.Bool("foreign_keys", true); err != nil {
		return nil, err
	}
	if cfg.JournalMode, err = params.String("journal_mode", ""); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database) == "" {
		return nil, apperrors.InvalidParameter(kind, "database path must not be empty")
	}
	switch cfg.Mode {
	case "", "ro", "rw", "rwc":
	default:
		return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("unknown mode %q (expected ro, rw or rwc)", cfg.Mode))
	}
	return cfg, nil
}

// DSN builds a go-sqlite3 URI filename.
func (c *Config) DSN() string {
	query := url.Values{}
	query.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	if c.ForeignKeys {
		query.Set("_foreign_keys", "on")
	}
	if c.JournalMode != "" {
		query.Set("_journal_mode", c.JournalMode)
	}
	if c.Mode != "" {
		query.Set("mode", c.Mode)
	}

	if c.Database == MemoryDatabase {
		// Every connection in the *sql.DB must see the same database
		query.Set("cache", "shared")
	}
	return "file:" + escapePath(c.Database) + "?" + query.Encode()
}

// escapePath percent-encodes each path segment so '?', '#' and '%' in a file
// name are not read as URI query, fragment or escapes. SQLite decodes them.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
