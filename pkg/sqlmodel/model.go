// Package sqlmodel is a minimal table model for relational datasources:
// create a table from a field list and insert records into it.
package sqlmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/audit"
	"github.com/ekaya-inc/ekaya-connect/pkg/middleware"
)

// ErrSuspiciousValue is returned by Insert when value screening is enabled
// and a string value looks like SQL injection.
var ErrSuspiciousValue = errors.New("value rejected by injection screening")

// Field is one column definition.
type Field struct {
	Name string
	// Type is the column type and constraints, e.g. "INTEGER PRIMARY KEY".
	Type string
}

// Model describes a table.
type Model struct {
	// Name is the model name. The table defaults to its lowercase plural.
	Name string
	// Table overrides the derived table name.
	Table  string
	Fields []Field
	// PrimaryKey, when set, is returned by Insert on PostgreSQL via RETURNING.
	PrimaryKey string
	// ScreenValues rejects string values that libinjection flags.
	// Values are always bound as parameters; this is an extra guard for
	// data that is later rendered into other queries.
	ScreenValues bool
}

// Execer is the subset of *sql.DB used by the model.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TableName returns Table, or the lowercase plural of Name ("Person" -> "people").
func (m *Model) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return inflection.Plural(strings.ToLower(m.Name))
}

// CreateTableSQL renders the CREATE TABLE statement for d.
func (m *Model) CreateTableSQL(d Dialect) (string, error) {
	table := m.TableName()
	if err := validateIdentifier("table", table); err != nil {
		return "", apperrors.InvalidParameter(string(d.Kind()), err.Error())
	}
	if len(m.Fields) == 0 {
		return "", apperrors.InvalidParameter(string(d.Kind()), fmt.Sprintf("model %q defines no fields", m.Name))
	}

	columns := make([]string, 0, len(m.Fields))
	seen := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if err := validateIdentifier("column", f.Name); err != nil {
			return "", apperrors.InvalidParameter(string(d.Kind()), err.Error())
		}
		if err := validateTypeDefinition(f.Name, f.Type); err != nil {
			return "", apperrors.InvalidParameter(string(d.Kind()), err.Error())
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			return "", apperrors.InvalidParameter(string(d.Kind()), fmt.Sprintf("duplicate column %q", f.Name))
		}
		seen[key] = true
		columns = append(columns, d.Quote(f.Name)+" "+strings.TrimSpace(f.Type))
	}
	return d.createTable(table, columns), nil
}

// InsertSQL renders an INSERT for values with columns in sorted order and
// returns the statement with its bind arguments.
func (m *Model) InsertSQL(d Dialect, values map[string]any) (string, []any, error) {
	table := m.TableName()
	if err := validateIdentifier("table", table); err != nil {
		return "", nil, apperrors.InvalidParameter(string(d.Kind()), err.Error())
	}
	if len(values) == 0 {
		return "", nil, apperrors.InvalidParameter(string(d.Kind()), "insert needs at least one value")
	}

	names := make([]string, 0, len(values))
	for name := range values {
		if err := validateIdentifier("column", name); err != nil {
			return "", nil, apperrors.InvalidParameter(string(d.Kind()), err.Error())
		}
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]string, len(names))
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		columns[i] = d.Quote(name)
		placeholders[i] = d.Placeholder(i + 1)
		args[i] = values[name]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if m.returnsKey(d) {
		if err := validateIdentifier("column", m.PrimaryKey); err != nil {
			return "", nil, apperrors.InvalidParameter(string(d.Kind()), err.Error())
		}
		stmt += " RETURNING " + d.Quote(m.PrimaryKey)
	}
	return stmt, args, nil
}

// CreateTable creates the model's table on a relational connector if it does
// not already exist.
func (m *Model) CreateTable(ctx context.Context, c datasource.Connector, logger *zap.Logger) error {
	db, d, err := target(c)
	if err != nil {
		return err
	}
	return m.CreateTableOn(ctx, db, d, logger)
}

// CreateTableOn is CreateTable for an explicit database and dialect.
func (m *Model) CreateTableOn(ctx context.Context, db Execer, d Dialect, logger *zap.Logger) error {
	stmt, err := m.CreateTableSQL(d)
	if err != nil {
		return err
	}

	return middleware.Timed(logger, "create_table", func() error {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !d.tableExists(err) {
			return fmt.Errorf("failed to create table %s: %w", m.TableName(), err)
		}
		return nil
	})
}

// Insert inserts one record and returns the new row id where the engine
// reports one (MySQL and SQLite; PostgreSQL when PrimaryKey is set), else 0.
func (m *Model) Insert(ctx context.Context, c datasource.Connector, values map[string]any, logger *zap.Logger) (int64, error) {
	db, d, err := target(c)
	if err != nil {
		return 0, err
	}
	return m.InsertOn(ctx, db, d, values, logger)
}

// InsertOn is Insert for an explicit database and dialect.
func (m *Model) InsertOn(ctx context.Context, db Execer, d Dialect, values map[string]any, logger *zap.Logger) (int64, error) {
	if m.ScreenValues {
		if results := CheckAllValues(values); len(results) > 0 {
			audit.NewSecurityAuditor(logger).LogInjectionRejected(ctx, audit.InjectionDetails{
				Table:       m.TableName(),
				Column:      results[0].Column,
				Fingerprint: results[0].Fingerprint,
			})
			return 0, fmt.Errorf("column %s: %w", results[0].Column, ErrSuspiciousValue)
		}
	}

	stmt, args, err := m.InsertSQL(d, values)
	if err != nil {
		return 0, err
	}

	return middleware.TimedResult(logger, "insert", func() (int64, error) {
		if m.returnsKey(d) {
			var id int64
			if err := db.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
				return 0, fmt.Errorf("failed to insert into %s: %w", m.TableName(), err)
			}
			return id, nil
		}

		res, err := db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", m.TableName(), err)
		}
		if !d.supportsLastInsertID() {
			return 0, nil
		}
		return res.LastInsertId()
	}, zap.String("table", m.TableName()))
}

func (m *Model) returnsKey(d Dialect) bool {
	return d.Kind() == datasource.KindPostgreSQL && m.PrimaryKey != ""
}

func target(c datasource.Connector) (*sql.DB, Dialect, error) {
	d, err := DialectFor(c.Kind())
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := datasource.SQLDB(c)
	if err != nil {
		return nil, Dialect{}, err
	}
	return db, d, nil
}
