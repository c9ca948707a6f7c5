package sqlmodel

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifier rejects anything that is not a plain SQL identifier.
// Table and column names are interpolated into statements.
func validateIdentifier(what, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name %q: must match %s", what, name, identifierPattern.String())
	}
	return nil
}

// validateTypeDefinition checks a column type such as "INTEGER PRIMARY KEY"
// for statement separators and comments.
func validateTypeDefinition(column, def string) error {
	if strings.TrimSpace(def) == "" {
		return fmt.Errorf("column %q has an empty type definition", column)
	}
	if hasSemicolonOutsideStrings(def) {
		return fmt.Errorf("column %q type definition must not contain ';'", column)
	}
	if strings.Contains(def, "--") || strings.Contains(def, "/*") {
		return fmt.Errorf("column %q type definition must not contain comments", column)
	}
	return nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Doubled quotes ('') exit and immediately re-enter
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}
	return false
}
