package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("CATALOG_SOURCE", "https://example.org/medicines.tsv")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.CatalogSource != "https://example.org/medicines.tsv" {
		t.Errorf("Unexpected catalog source %s", cfg.CatalogSource)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", cfg.RequestTimeout)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.CatalogRefreshAt != "06:00;18:00" {
		t.Errorf("Expected default refresh spec, got %s", cfg.CatalogRefreshAt)
	}
	if !cfg.CatalogWatch {
		t.Error("Expected catalog watch enabled by default")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %s", cfg.RequestTimeout)
	}
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "is a public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "loud", "LOG_LEVEL must be one of"},
		{"MAX_REQUEST_BODY", "-1", "must be positive"},
		{"LOG_RETENTION_WEEKS", "60", "too large"},
		{"MAX_LOG_FILE_SIZE", "10", "too small"},
		{"CATALOG_SOURCE", "ftp://example.org/x.tsv", "scheme must be"},
		{"SERVICE_URL", "localhost:8000", "must use http or https"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"PRODUCTION", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestLoadPrescriber(t *testing.T) {
	t.Run("missing file yields default", func(t *testing.T) {
		p, err := LoadPrescriber(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.DoctorName != DefaultDoctorName {
			t.Errorf("Expected %q, got %q", DefaultDoctorName, p.DoctorName)
		}
	})

	t.Run("profile is read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prescriber.yaml")
		body := "doctor_name: Dr. Rahman\nspecialization: Medicine\nreg_no: A-1234\nphone: \"0171\"\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}

		p, err := LoadPrescriber(path)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.DoctorName != "Dr. Rahman" || p.RegNo != "A-1234" || p.Phone != "0171" {
			t.Errorf("Unexpected profile %+v", p)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prescriber.yaml")
		if err := os.WriteFile(path, []byte("doctor_name: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPrescriber(path); err == nil {
			t.Error("Expected parse error")
		}
	})
}
