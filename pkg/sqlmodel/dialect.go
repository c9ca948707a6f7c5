package sqlmodel

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// Dialect renders the SQL that differs between relational engines.
type Dialect struct {
	kind datasource.Kind
}

// DialectFor returns the dialect of a relational kind.
func DialectFor(kind datasource.Kind) (Dialect, error) {
	if !kind.IsRelational() {
		return Dialect{}, apperrors.InvalidParameter(string(kind), "sqlmodel needs a relational datasource")
	}
	return Dialect{kind: kind}, nil
}

// Kind returns the engine this dialect targets.
func (d Dialect) Kind() datasource.Kind {
	return d.kind
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	switch d.kind {
	case datasource.KindPostgreSQL:
		return fmt.Sprintf("$%d", n)
	case datasource.KindMSSQL:
		return fmt.Sprintf("@p%d", n)
	case datasource.KindOracle:
		return fmt.Sprintf(":%d", n)
	default:
		return "?"
	}
}

// Quote quotes an identifier. Names are validated before quoting, so the
// quote character can never appear inside.
func (d Dialect) Quote(name string) string {
	switch d.kind {
	case datasource.KindMySQL:
		return "`" + name + "`"
	case datasource.KindMSSQL:
		return "[" + name + "]"
	default:
		return `"` + name + `"`
	}
}

// createTable renders an idempotent CREATE TABLE.
// Oracle has no IF NOT EXISTS before 23c; the caller ignores ORA-00955 instead.
func (d Dialect) createTable(table string, columns []string) string {
	body := strings.Join(columns, ", ")
	switch d.kind {
	case datasource.KindMSSQL:
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", table, d.Quote(table), body)
	case datasource.KindOracle:
		return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(table), body)
	default:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Quote(table), body)
	}
}

// supportsLastInsertID reports whether sql.Result.LastInsertId works.
func (d Dialect) supportsLastInsertID() bool {
	return d.kind == datasource.KindMySQL || d.kind == datasource.KindSQLite
}

// tableExists reports whether err is Oracle's "name is already used" error.
func (d Dialect) tableExists(err error) bool {
	return d.kind == datasource.KindOracle && err != nil && strings.Contains(err.Error(), "ORA-00955")
}
