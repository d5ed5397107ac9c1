package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "simtrack.yaml")
	envPath := filepath.Join(tempDir, ".env")

	tests := []struct {
		name          string
		setup         func(t *testing.T)
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func(t *testing.T) {},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sim.Provider != "xplane" {
					t.Errorf("expected default provider 'xplane', got '%s'", cfg.Sim.Provider)
				}
				if cfg.Tracking.ResumeMaxDistance.NM() != 2 {
					t.Errorf("expected resume distance 2nm, got %v", cfg.Tracking.ResumeMaxDistance.NM())
				}
				if cfg.Tracking.DebounceWindow.Std() != 10*time.Second {
					t.Errorf("expected debounce 10s, got %v", cfg.Tracking.DebounceWindow.Std())
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "provider: xplane") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: mock, xplane") {
					t.Error("config file missing provider options comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func(t *testing.T) {
				data := "sim:\n  provider: mock\nsampling:\n  primary: 250ms\ntracking:\n  resume_max_distance: 5km\n"
				if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sim.Provider != "mock" {
					t.Errorf("expected provider 'mock', got '%s'", cfg.Sim.Provider)
				}
				if cfg.Sampling.Primary.Std() != 250*time.Millisecond {
					t.Errorf("expected 250ms, got %v", cfg.Sampling.Primary.Std())
				}
				if cfg.Sampling.Secondary.Std() != time.Second {
					t.Errorf("expected default secondary 1s, got %v", cfg.Sampling.Secondary.Std())
				}
				if cfg.Tracking.ResumeMaxDistance.Meters() != 5000 {
					t.Errorf("expected 5000m, got %v", cfg.Tracking.ResumeMaxDistance)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "# SimTrack Configuration") {
					t.Error("existing config file should not be rewritten")
				}
			},
		},
		{
			name: "Token_From_Env",
			setup: func(t *testing.T) {
				t.Setenv(EnvReportToken, "env_secret_token")
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Report.Token != "env_secret_token" {
					t.Errorf("expected token from env, got '%s'", cfg.Report.Token)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "env_secret_token") {
					t.Error("environment secret should NOT be persisted to config file")
				}
			},
		},
		{
			name: "Token_From_DotEnv",
			setup: func(t *testing.T) {
				unsetEnv(t, EnvReportToken)
				if err := os.WriteFile(envPath, []byte(EnvReportToken+"=dotenv_token\n"), 0o600); err != nil {
					t.Fatalf("failed to write .env: %v", err)
				}
				t.Cleanup(func() { os.Remove(envPath) })
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Report.Token != "dotenv_token" {
					t.Errorf("expected token from .env, got '%s'", cfg.Report.Token)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "Invalid_YAML",
			setup: func(t *testing.T) {
				if err := os.WriteFile(configPath, []byte("sim: [not a map]"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_Provider",
			setup: func(t *testing.T) {
				if err := os.WriteFile(configPath, []byte("sim:\n  provider: msfs\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_Volume",
			setup: func(t *testing.T) {
				if err := os.WriteFile(configPath, []byte("audio:\n  volume: 3\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup(t)

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "default_config.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if cfg.Audio.Engine != "voice-pack" {
		t.Errorf("expected engine 'voice-pack', got '%s'", cfg.Audio.Engine)
	}
}
