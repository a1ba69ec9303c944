package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
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
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const minimalConfig = `cryptopulse:
  name: "TestApp"
  version: "1.0"
provider:
  api_key: "file-key"
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cryptopulse.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Cryptopulse.Name)
	}
	if cfg.Provider.APIKey != "file-key" {
		t.Errorf("unexpected api key: %s", cfg.Provider.APIKey)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Provider.TopN != 100 {
		t.Errorf("unexpected default top_n: %d", cfg.Provider.TopN)
	}
	if cfg.Provider.Timeout() != 30*time.Second {
		t.Errorf("unexpected default provider timeout: %s", cfg.Provider.Timeout())
	}
	if cfg.Cycle.Interval() != time.Hour {
		t.Errorf("unexpected default interval: %s", cfg.Cycle.Interval())
	}
	if cfg.Storage.SQLitePath() != "data/crypto_data.db" {
		t.Errorf("unexpected sqlite path: %s", cfg.Storage.SQLitePath())
	}
	if cfg.Archive.Compression != "snappy" {
		t.Errorf("unexpected default compression: %s", cfg.Archive.Compression)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	t.Setenv("COINMARKETCAP_API_KEY", "env-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", " 99 ")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("expected env override of api key, got %s", cfg.Provider.APIKey)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("expected env override of bot token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "99" {
		t.Errorf("expected trimmed chat id, got %q", cfg.Telegram.ChatID)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing api key",
			content: `cryptopulse:
  name: "TestApp"
  version: "1.0"
`,
			wantErr: "provider.api_key",
		},
		{
			name: "missing name",
			content: `cryptopulse:
  version: "1.0"
provider:
  api_key: "k"
`,
			wantErr: "cryptopulse.name",
		},
		{
			name: "telegram enabled without token",
			content: minimalConfig + `telegram:
  enabled: true
  chat_id: "1"
`,
			wantErr: "telegram.bot_token",
		},
		{
			name: "s3 enabled without bucket",
			content: minimalConfig + `storage:
  s3:
    enabled: true
`,
			wantErr: "storage.s3.bucket",
		},
		{
			name: "bad compression",
			content: minimalConfig + `archive:
  compression: "zstd"
`,
			wantErr: "archive.compression",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempConfig(t, c.content)
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("expected error containing %q, got %v", c.wantErr, err)
			}
		})
	}
}

func TestGetAppEnvironment(t *testing.T) {
	cases := map[string]string{
		"":            "development",
		"dev":         "development",
		"development": "development",
		"prod":        "production",
		"PROD":        "production",
		"staging":     "staging",
	}
	for in, want := range cases {
		t.Setenv(appEnvVar, in)
		if got := getAppEnvironment(); got != want {
			t.Errorf("getAppEnvironment() with APP_ENV=%q = %q, want %q", in, got, want)
		}
	}
}

func TestResolveConfigPathPrefersEnvFile(t *testing.T) {
	dir := t.TempDir()
	base := dir + "/config.yml"
	envFile := dir + "/config.production.yml"
	for _, p := range []string{base, envFile} {
		if err := os.WriteFile(p, []byte("cryptopulse: {}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	t.Setenv(appEnvVar, "prod")
	if got := resolveConfigPath(base); got != envFile {
		t.Errorf("expected %s, got %s", envFile, got)
	}

	t.Setenv(appEnvVar, "dev")
	if got := resolveConfigPath(base); got != base {
		t.Errorf("expected %s, got %s", base, got)
	}
}
