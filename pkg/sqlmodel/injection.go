package sqlmodel

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a column value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Column      string // Column whose value failed the check
}

// CheckValueForInjection uses libinjection to detect SQL injection patterns
// in a value about to be inserted.
//
// Only string values are checked. Returns nil if no injection is detected.
//
// Example:
//
//	result := CheckValueForInjection("name", "'; DROP TABLE users--")
//	// result.IsSQLi == true
//	// result.Column == "name"
func CheckValueForInjection(column string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			Column:      column,
		}
	}
	return nil
}

// CheckAllValues screens every value of a record.
// Returns one result per column that failed, or nil if all values are clean.
func CheckAllValues(values map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for column, value := range values {
		if result := CheckValueForInjection(column, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
