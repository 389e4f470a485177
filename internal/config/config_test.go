package config

import (
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      string
		expected string
	}{
		{
			name:     "variable set",
			key:      "TEST_LATTICE_STR",
			value:    "custom",
			def:      "fallback",
			expected: "custom",
		},
		{
			name:     "variable not set",
			key:      "TEST_LATTICE_STR_MISSING",
			def:      "fallback",
			expected: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := getenv(tt.key, tt.def); got != tt.expected {
				t.Errorf("getenv() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_LATTICE_DUR",
			value:    "45s",
			def:      time.Minute,
			expected: 45 * time.Second,
		},
		{
			name:     "invalid duration falls back",
			key:      "TEST_LATTICE_DUR_BAD",
			value:    "not_a_duration",
			def:      time.Minute,
			expected: time.Minute,
		},
		{
			name:     "unset falls back",
			key:      "TEST_LATTICE_DUR_MISSING",
			def:      30 * time.Second,
			expected: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := mustDuration(tt.key, tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "comma separated with spaces",
			input:    "10.0.0.0/8, 192.168.1.50 ,::1",
			expected: []string{"10.0.0.0/8", "192.168.1.50", "::1"},
		},
		{
			name:     "quoted entries",
			input:    `"lattice.example.com", 'registry.example.com'`,
			expected: []string{"lattice.example.com", "registry.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAndTrim(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("splitAndTrim(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("splitAndTrim(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %v, want :8080", cfg.ListenPort)
	}
	if cfg.ProbeInterval != 30*time.Second {
		t.Errorf("ProbeInterval = %v, want 30s", cfg.ProbeInterval)
	}
	if cfg.ExpiryThreshold != 3 {
		t.Errorf("ExpiryThreshold = %v, want 3", cfg.ExpiryThreshold)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %v, want empty (snapshots disabled by default)", cfg.RedisAddr)
	}
}
