package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
netbox:
  project: netbox
  compose_file: stacks/netbox/docker-compose.yml
  working_dir: stacks/netbox
  http_port: 9000
  health_path: /login/
timeouts:
  web_seconds: 600
  interval_seconds: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NetBox.HTTPPort != 9000 {
		t.Errorf("netbox http_port = %d, want 9000", cfg.NetBox.HTTPPort)
	}
	if cfg.Timeouts.WebSeconds != 600 {
		t.Errorf("web_seconds = %d, want 600", cfg.Timeouts.WebSeconds)
	}
	if cfg.Interval() != 2*time.Second {
		t.Errorf("interval = %v, want 2s", cfg.Interval())
	}
	// Unmentioned sections keep their defaults.
	if cfg.Nautobot.HTTPPort != 8080 {
		t.Errorf("nautobot http_port = %d, want default 8080", cfg.Nautobot.HTTPPort)
	}
	if cfg.Remote.Port != 22 {
		t.Errorf("remote port = %d, want default 22", cfg.Remote.Port)
	}
}

func TestLoadConfigMissingDefaultPathYieldsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NetBox.Project != "netbox" || cfg.Nautobot.Project != "nautobot" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigMissingExplicitFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("netbox: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultsStorageLayout(t *testing.T) {
	cfg := Defaults()
	if len(cfg.NetBox.BindDirs) == 0 || len(cfg.NetBox.Volumes) != 0 {
		t.Errorf("netbox should persist to bind dirs only: %+v", cfg.NetBox)
	}
	if len(cfg.Nautobot.Volumes) == 0 || len(cfg.Nautobot.BindDirs) != 0 {
		t.Errorf("nautobot should persist to named volumes only: %+v", cfg.Nautobot)
	}
}

func TestLoadSecretsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	content := `
# superuser credentials
NETBOX_SUPERUSER_NAME=admin
NETBOX_SUPERUSER_PASSWORD = s3cret

NAUTOBOT_SUPERUSER_NAME=admin
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	secrets, err := LoadSecretsEnv(path)
	if err != nil {
		t.Fatalf("LoadSecretsEnv: %v", err)
	}
	if secrets["NETBOX_SUPERUSER_NAME"] != "admin" {
		t.Errorf("name = %q, want admin", secrets["NETBOX_SUPERUSER_NAME"])
	}
	if secrets["NETBOX_SUPERUSER_PASSWORD"] != "s3cret" {
		t.Errorf("password = %q, want s3cret (whitespace trimmed)", secrets["NETBOX_SUPERUSER_PASSWORD"])
	}
	if len(secrets) != 3 {
		t.Errorf("got %d entries, want 3", len(secrets))
	}
}

func TestLoadSecretsEnvMissingFileNotFatal(t *testing.T) {
	secrets, err := LoadSecretsEnv(filepath.Join(t.TempDir(), "secrets.env"))
	if err != nil {
		t.Fatalf("missing secrets file should not error: %v", err)
	}
	if len(secrets) != 0 {
		t.Errorf("expected empty map, got %v", secrets)
	}
}

func TestResolveSecretPrefersEnvironment(t *testing.T) {
	t.Setenv("NETBOX_SUPERUSER_NAME", "fromenv")
	secrets := map[string]string{"NETBOX_SUPERUSER_NAME": "fromfile", "OTHER": "x"}

	if got := ResolveSecret(secrets, "NETBOX_SUPERUSER_NAME"); got != "fromenv" {
		t.Errorf("got %q, want environment value", got)
	}
	if got := ResolveSecret(secrets, "OTHER"); got != "x" {
		t.Errorf("got %q, want file value", got)
	}
}
