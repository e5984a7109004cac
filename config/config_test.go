package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `lendflow:
  name: "TestApp"
  version: "1.0"
reader:
  inbox_dir: "inbox"
facts:
  delinquency_dpd_threshold: 30
`)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Lendflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Lendflow.Name)
	}
	if cfg.Pipeline.MaxWorkers != 4 {
		t.Errorf("unexpected default max workers: %d", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Pipeline.RunTimeout != 10*time.Minute {
		t.Errorf("unexpected default run timeout: %v", cfg.Pipeline.RunTimeout)
	}
	if cfg.Facts.LatePolicy != LatePolicyNewestBatchWins {
		t.Errorf("unexpected default late policy: %s", cfg.Facts.LatePolicy)
	}
	if cfg.Facts.DelinquencyDPDThreshold != 30 {
		t.Errorf("unexpected dpd threshold: %d", cfg.Facts.DelinquencyDPDThreshold)
	}
}

func TestLoadConfigInvalidLatePolicy(t *testing.T) {
	path := writeTempConfig(t, `lendflow:
  name: "TestApp"
  version: "1.0"
facts:
  late_policy: "whoever_shouts_loudest"
`)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid late policy")
	}
}

func TestLoadConfigInvalidDateBasis(t *testing.T) {
	path := writeTempConfig(t, `lendflow:
  name: "TestApp"
  version: "1.0"
facts:
  date_basis:
    payments: "lunar"
`)
	defer os.Remove(path)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid date basis")
	}
}

func TestDateBasisFor(t *testing.T) {
	cfg := FactsConfig{DateBasis: map[string]string{"payments": DateBasisBatch}}
	if got := cfg.DateBasisFor("payments"); got != DateBasisBatch {
		t.Errorf("DateBasisFor(payments) = %s, want %s", got, DateBasisBatch)
	}
	if got := cfg.DateBasisFor("applications"); got != DateBasisEvent {
		t.Errorf("DateBasisFor(applications) = %s, want %s", got, DateBasisEvent)
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
