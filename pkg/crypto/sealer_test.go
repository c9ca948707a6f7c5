package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=" // "test-key-for-unit-tests-32-bytes"

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid 32-byte base64 key", key: testKey},
		{name: "passphrase", key: "my-simple-passphrase"},
		{name: "short base64 key is hashed", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key"))},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s == nil {
				t.Error("expected non-nil sealer")
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	s, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}

	for _, password := range []string{"hunter2", "p@ss:w/rd;with=delims", "密码-unicode", strings.Repeat("x", 4096)} {
		sealed, err := s.Seal("analytics", password)
		if err != nil {
			t.Fatalf("Seal(%q) failed: %v", password, err)
		}
		if !IsSealed(sealed) {
			t.Errorf("sealed value %q lacks prefix", sealed)
		}
		if strings.Contains(sealed, password) {
			t.Errorf("sealed value contains plaintext")
		}

		opened, err := s.Open("analytics", sealed)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if opened != password {
			t.Errorf("Open = %q, want %q", opened, password)
		}
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	s, _ := NewSealer(testKey)

	a, _ := s.Seal("db", "same")
	b, _ := s.Seal("db", "same")
	if a == b {
		t.Error("expected different ciphertexts for the same password")
	}
}

func TestSeal_EmptyPassword(t *testing.T) {
	s, _ := NewSealer(testKey)
	if _, err := s.Seal("db", ""); err == nil {
		t.Error("expected error sealing an empty password")
	}
}

func TestOpen_Failures(t *testing.T) {
	s, _ := NewSealer(testKey)
	other, _ := NewSealer("a-different-passphrase")

	sealed, err := s.Seal("analytics", "hunter2")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tests := []struct {
		name   string
		sealer *Sealer
		ds     string
		value  string
	}{
		{"wrong key", other, "analytics", sealed},
		{"wrong datasource", s, "billing", sealed},
		{"missing prefix", s, "analytics", strings.TrimPrefix(sealed, SealedPrefix)},
		{"bad base64", s, "analytics", SealedPrefix + "!!!"},
		{"too short", s, "analytics", SealedPrefix + base64.StdEncoding.EncodeToString([]byte("short"))},
		{"tampered", s, "analytics", sealed[:len(sealed)-4] + "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.sealer.Open(tt.ds, tt.value); !errors.Is(err, ErrUnsealFailed) {
				t.Errorf("expected ErrUnsealFailed, got %v", err)
			}
		})
	}
}

func TestPassphraseKeyConsistency(t *testing.T) {
	s1, _ := NewSealer("my-consistent-passphrase")
	s2, _ := NewSealer("my-consistent-passphrase")

	sealed, err := s1.Seal("db", "secret-data")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	opened, err := s2.Open("db", sealed)
	if err != nil {
		t.Fatalf("Open with same passphrase failed: %v", err)
	}
	if opened != "secret-data" {
		t.Errorf("Open = %q, want %q", opened, "secret-data")
	}
}
