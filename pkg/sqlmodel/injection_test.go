package sqlmodel

import (
	"testing"
)

func TestCheckValueForInjection(t *testing.T) {
	tests := []struct {
		name            string
		column          string
		value           any
		expectInjection bool
	}{
		{name: "clean string value", column: "customer_id", value: "12345"},
		{name: "clean email address", column: "email", value: "user@example.com"},
		{name: "clean UUID", column: "id", value: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "legitimate apostrophe", column: "name", value: "O'Brien"},
		{name: "SQL keywords in prose", column: "description", value: "SELECT the best option from the menu"},
		{name: "integer value", column: "limit", value: 100},
		{name: "nil value", column: "optional", value: nil},
		{name: "empty string", column: "filter", value: ""},

		{name: "classic quote injection", column: "username", value: "' OR '1'='1", expectInjection: true},
		{name: "drop table injection", column: "search", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select injection", column: "id", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
		{name: "comment injection", column: "filter", value: "admin'--", expectInjection: true},
		{name: "time-based blind injection", column: "id", value: "1' AND SLEEP(5)--", expectInjection: true},
		{name: "stacked queries", column: "name", value: "admin'; DELETE FROM logs; --", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckValueForInjection(tt.column, tt.value)

			if !tt.expectInjection {
				if result != nil {
					t.Errorf("expected no injection, got fingerprint %q", result.Fingerprint)
				}
				return
			}

			if result == nil {
				t.Fatalf("expected injection detection, got nil")
			}
			if !result.IsSQLi {
				t.Errorf("expected IsSQLi=true, got false")
			}
			if result.Column != tt.column {
				t.Errorf("expected Column=%q, got %q", tt.column, result.Column)
			}
			if result.Fingerprint == "" {
				t.Errorf("expected non-empty fingerprint, got empty string")
			}
		})
	}
}

func TestCheckAllValues(t *testing.T) {
	values := map[string]any{
		"customer_id": "12345",
		"search":      "'; DROP TABLE users--",
		"limit":       100,
	}

	results := CheckAllValues(values)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Column != "search" {
		t.Errorf("expected column search, got %q", results[0].Column)
	}

	if results := CheckAllValues(map[string]any{"name": "gear", "qty": 3}); results != nil {
		t.Errorf("expected nil for clean values, got %d results", len(results))
	}
}
