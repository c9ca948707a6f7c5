package datasource

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// Kind identifies a database engine.
type Kind string

const (
	KindMySQL         Kind = "mysql"
	KindPostgreSQL    Kind = "postgresql"
	KindSQLite        Kind = "sqlite"
	KindOracle        Kind = "oracle"
	KindMSSQL         Kind = "mssql"
	KindMongoDB       Kind = "mongodb"
	KindRedis         Kind = "redis"
	KindCassandra     Kind = "cassandra"
	KindElasticsearch Kind = "elasticsearch"
)

// Category groups kinds by data model.
type Category string

const (
	CategoryRelational Category = "relational"
	CategoryDocument   Category = "document"
	CategoryKeyValue   Category = "key-value"
	CategoryColumnar   Category = "columnar"
	CategorySearch     Category = "search"
)

// kinds is the fixed set of supported engines, in display order.
var kinds = []Kind{
	KindMySQL,
	KindPostgreSQL,
	KindSQLite,
	KindOracle,
	KindMSSQL,
	KindMongoDB,
	KindRedis,
	KindCassandra,
	KindElasticsearch,
}

var categories = map[Kind]Category{
	KindMySQL:         CategoryRelational,
	KindPostgreSQL:    CategoryRelational,
	KindSQLite:        CategoryRelational,
	KindOracle:        CategoryRelational,
	KindMSSQL:         CategoryRelational,
	KindMongoDB:       CategoryDocument,
	KindRedis:         CategoryKeyValue,
	KindCassandra:     CategoryColumnar,
	KindElasticsearch: CategorySearch,
}

// aliases accepted by ParseKind in addition to the canonical names.
var aliases = map[string]Kind{
	"postgres":   KindPostgreSQL,
	"pg":         KindPostgreSQL,
	"sqlserver":  KindMSSQL,
	"mongo":      KindMongoDB,
	"es":         KindElasticsearch,
	"sqlite3":    KindSQLite,
	"oci8":       KindOracle,
	"scylla":     KindCassandra,
	"opensearch": KindElasticsearch,
}

// Kinds returns the fixed set of supported kinds.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// KindNames returns the supported kinds as strings, in display order.
func KindNames() []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if _, ok := categories[Kind(normalized)]; ok {
		return Kind(normalized), nil
	}
	if k, ok := aliases[normalized]; ok {
		return k, nil
	}
	return "", apperrors.UnsupportedKind(name, KindNames())
}

// Category returns the data model of the kind.
func (k Kind) Category() Category {
	return categories[k]
}

// IsRelational reports whether the kind speaks SQL.
func (k Kind) IsRelational() bool {
	return categories[k] == CategoryRelational
}

func (k Kind) String() string {
	return string(k)
}

// Mode selects the blocking or non-blocking connector variant.
type Mode int

const (
	// Blocking connectors detach driver calls from caller cancellation and
	// bound them with a timeout instead.
	Blocking Mode = iota
	// NonBlocking connectors propagate the caller's context into every driver
	// call so the calling goroutine parks on I/O and can be cancelled.
	NonBlocking
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "non-blocking"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "blocking" or "non-blocking" (also "nonblocking" and "async").
// An empty string means Blocking.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocking", "sync":
		return Blocking, nil
	case "non-blocking", "nonblocking", "async":
		return NonBlocking, nil
	default:
		return Blocking, apperrors.InvalidParameter("", fmt.Sprintf("unknown mode %q (expected blocking or non-blocking)", s))
	}
}

// KindInfo describes a kind for discovery.
type KindInfo struct {
	Kind        Kind     `json:"kind"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	// Available is true when a driver binding for the kind is compiled in.
	Available bool `json:"available"`
	// NonBlocking is true when the kind has a native non-blocking binding.
	NonBlocking bool `json:"non_blocking"`
	// RequiredFields are the params that must be present to connect.
	RequiredFields []string `json:"required_fields"`
}
