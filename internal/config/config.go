package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the typed settings object handed to every component. Nothing past
// LoadConfig reads ambient environment.
type Config struct {
	NetBox   StackConfig `yaml:"netbox"`
	Nautobot StackConfig `yaml:"nautobot"`
	Nornir   StackConfig `yaml:"nornir"`

	Timeouts struct {
		DatastoreSeconds int `yaml:"datastore_seconds"`
		WebSeconds       int `yaml:"web_seconds"`
		WorkerSeconds    int `yaml:"worker_seconds"`
		IntervalSeconds  int `yaml:"interval_seconds"`
	} `yaml:"timeouts"`

	Remote struct {
		Enabled    bool   `yaml:"enabled"`
		Host       string `yaml:"host"`
		User       string `yaml:"user"`
		Port       int    `yaml:"port"`
		KeyPath    string `yaml:"key_path"`
		KnownHosts string `yaml:"known_hosts"`
		EnvDir     string `yaml:"env_dir"`
	} `yaml:"remote"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
}

// StackConfig describes one compose project.
type StackConfig struct {
	Project     string `yaml:"project"`
	ComposeFile string `yaml:"compose_file"`
	WorkingDir  string `yaml:"working_dir"`
	HTTPPort    int    `yaml:"http_port"`
	HealthPath  string `yaml:"health_path"`

	Database struct {
		Name string `yaml:"name"`
		User string `yaml:"user"`
	} `yaml:"database"`

	// BindDirs lists host directories holding persisted state. NetBox uses
	// these; Nautobot persists to named volumes instead.
	BindDirs []string `yaml:"bind_dirs"`
	// Volumes lists named volumes holding persisted state.
	Volumes []string `yaml:"volumes"`

	Superuser struct {
		NameEnv     string `yaml:"name_env"`
		EmailEnv    string `yaml:"email_env"`
		PasswordEnv string `yaml:"password_env"`
	} `yaml:"superuser"`
}

// LoadConfig reads YAML configuration from a path. If path is empty, it resolves
// $XDG_CONFIG_HOME/sotctl/config.yaml or ~/.config/sotctl/config.yaml. Missing
// file yields the defaults so the tool works on a checkout without setup.
func LoadConfig(path string) (Config, error) {
	cfg := Defaults()
	explicit := path != ""
	if path == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "sotctl", "config.yaml")
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Defaults mirrors the stock two-stack deployment layout.
func Defaults() Config {
	var cfg Config
	cfg.NetBox = StackConfig{
		Project:     "netbox",
		ComposeFile: "netbox/docker-compose.yml",
		WorkingDir:  "netbox",
		HTTPPort:    8000,
		HealthPath:  "/login/",
		BindDirs:    []string{"netbox-data/postgres", "netbox-data/redis"},
	}
	cfg.NetBox.Database.Name = "netbox"
	cfg.NetBox.Database.User = "netbox"
	cfg.NetBox.Superuser.NameEnv = "NETBOX_SUPERUSER_NAME"
	cfg.NetBox.Superuser.EmailEnv = "NETBOX_SUPERUSER_EMAIL"
	cfg.NetBox.Superuser.PasswordEnv = "NETBOX_SUPERUSER_PASSWORD"

	cfg.Nautobot = StackConfig{
		Project:     "nautobot",
		ComposeFile: "nautobot/docker-compose.yml",
		WorkingDir:  "nautobot",
		HTTPPort:    8080,
		HealthPath:  "/health/",
		Volumes:     []string{"nautobot_postgres_data", "nautobot_redis_data"},
	}
	cfg.Nautobot.Database.Name = "nautobot"
	cfg.Nautobot.Database.User = "nautobot"
	cfg.Nautobot.Superuser.NameEnv = "NAUTOBOT_SUPERUSER_NAME"
	cfg.Nautobot.Superuser.EmailEnv = "NAUTOBOT_SUPERUSER_EMAIL"
	cfg.Nautobot.Superuser.PasswordEnv = "NAUTOBOT_SUPERUSER_PASSWORD"

	cfg.Nornir = StackConfig{
		Project:     "nornir",
		ComposeFile: "nornir-automation/docker-compose.yml",
		WorkingDir:  "nornir-automation",
		HTTPPort:    8082,
		HealthPath:  "/api/health",
	}

	cfg.Timeouts.DatastoreSeconds = 120
	cfg.Timeouts.WebSeconds = 300
	cfg.Timeouts.WorkerSeconds = 120
	cfg.Timeouts.IntervalSeconds = 5

	cfg.Remote.Port = 22
	cfg.Journal.Path = "sotctl.db"
	return cfg
}

// Interval returns the poll cadence for readiness probes.
func (c Config) Interval() time.Duration {
	if c.Timeouts.IntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Timeouts.IntervalSeconds) * time.Second
}

