package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.SampleRate == nil || *cfg.SampleRate != 50 {
		t.Errorf("Expected SampleRate 50, got %v", cfg.SampleRate)
	}
	if cfg.PeriodSeconds == nil || *cfg.PeriodSeconds != 300 {
		t.Errorf("Expected PeriodSeconds 300, got %v", cfg.PeriodSeconds)
	}
	if cfg.Sensitivity == nil || *cfg.Sensitivity != 0.1 {
		t.Errorf("Expected Sensitivity 0.1, got %v", cfg.Sensitivity)
	}
	if cfg.Seed != nil {
		t.Errorf("Expected Seed nil, got %v", *cfg.Seed)
	}

	if cfg.GetSampleCount() != 15000 {
		t.Errorf("GetSampleCount() = %d, want 15000", cfg.GetSampleCount())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"sample_rate", float64(cfg.GetSampleRate()), 50},
		{"period_seconds", float64(cfg.GetPeriodSeconds()), 300},
		{"window_size", float64(cfg.GetWindowSize()), 15},
		{"valid_steps_threshold", float64(cfg.GetValidStepsThreshold()), 8},
		{"sensitivity", cfg.GetSensitivity(), 0.100},
		{"x_mean", cfg.GetXMean(), 1.200},
		{"x_stddev", cfg.GetXStdDev(), 0.133},
		{"y_mean", cfg.GetYMean(), 0.500},
		{"y_stddev", cfg.GetYStdDev(), 0.066},
		{"z_mean", cfg.GetZMean(), 0.300},
		{"z_stddev", cfg.GetZStdDev(), 0.033},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if _, ok := cfg.GetSeed(); ok {
		t.Error("GetSeed() on empty config should report unset")
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "sample_rate": 100,
  "period_seconds": 60,
  "seed": 42,
  "sensitivity": 0.2,
  "x_mean": 1.5
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetSampleRate() != 100 {
		t.Errorf("GetSampleRate() = %d, want 100", cfg.GetSampleRate())
	}
	if cfg.GetSampleCount() != 6000 {
		t.Errorf("GetSampleCount() = %d, want 6000", cfg.GetSampleCount())
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != 42 {
		t.Errorf("GetSeed() = %d, %v; want 42, true", seed, ok)
	}
	if cfg.GetSensitivity() != 0.2 {
		t.Errorf("GetSensitivity() = %f, want 0.2", cfg.GetSensitivity())
	}
	if cfg.GetXMean() != 1.5 {
		t.Errorf("GetXMean() = %f, want 1.5", cfg.GetXMean())
	}
	// Omitted fields keep their defaults.
	if cfg.GetWindowSize() != 15 {
		t.Errorf("GetWindowSize() = %d, want 15", cfg.GetWindowSize())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadTuningConfigYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tuning.yml")
	testYAML := "sample_rate: 25\nseed: 18446744073709551615\nz_stddev: 0.05\n"
	if err := os.WriteFile(configPath, []byte(testYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetSampleRate() != 25 {
		t.Errorf("GetSampleRate() = %d, want 25", cfg.GetSampleRate())
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != 18446744073709551615 {
		t.Errorf("GetSeed() = %d, %v; want max uint64, true", seed, ok)
	}
	if cfg.GetZStdDev() != 0.05 {
		t.Errorf("GetZStdDev() = %f, want 0.05", cfg.GetZStdDev())
	}
	if cfg.GetPeriodSeconds() != 300 {
		t.Errorf("GetPeriodSeconds() = %d, want 300", cfg.GetPeriodSeconds())
	}
}

func TestLoadTuningConfigRejectsHugeSession(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "huge.json")
	if err := os.WriteFile(configPath, []byte(`{"sample_rate": 2147483647, "period_seconds": 2147483647}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "sample_rate must be at most") {
		t.Errorf("expected sample_rate bound error, got %v", err)
	}
}

func TestLoadTuningConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("sample_rate: [1, 2"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "parse config .yaml") {
		t.Errorf("expected yaml parse error, got %v", err)
	}
}

func TestLoadTuningConfigRejectsUnknownExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.toml")
	if err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "large.json")
	data := make([]byte, maxConfigFileSize+1)
	for i := range data {
		data[i] = ' '
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write large config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config", EmptyTuningConfig(), false},
		{"defaults", DefaultTuningConfig(), false},
		{"zero sample rate", &TuningConfig{SampleRate: ptrInt(0)}, true},
		{"negative period", &TuningConfig{PeriodSeconds: ptrInt(-1)}, true},
		{"zero window", &TuningConfig{WindowSize: ptrInt(0)}, true},
		{"negative threshold", &TuningConfig{ValidStepsThreshold: ptrInt(-1)}, true},
		{"negative sensitivity", &TuningConfig{Sensitivity: ptrFloat64(-0.1)}, true},
		{"negative stddev", &TuningConfig{YStdDev: ptrFloat64(-0.5)}, true},
		{"session too short", &TuningConfig{SampleRate: ptrInt(1), PeriodSeconds: ptrInt(5)}, true},
		{"zero sensitivity", &TuningConfig{Sensitivity: ptrFloat64(0)}, false},
		{"largest session", &TuningConfig{SampleRate: ptrInt(MaxSampleRate), PeriodSeconds: ptrInt(MaxPeriodSeconds)}, false},
		{"sample rate too high", &TuningConfig{SampleRate: ptrInt(MaxSampleRate + 1)}, true},
		{"period too long", &TuningConfig{PeriodSeconds: ptrInt(MaxPeriodSeconds + 1)}, true},
		{"count would wrap", &TuningConfig{SampleRate: ptrInt(2147483647), PeriodSeconds: ptrInt(2147483647)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
