package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name  string   `yaml:"name" env:"TEST_CFG_NAME"`
	Port  int      `yaml:"port" env:"TEST_CFG_PORT"`
	Hosts []string `yaml:"hosts" env:"TEST_CFG_HOSTS" envSeparator:","`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_FileWithExpansion(t *testing.T) {
	t.Setenv("TEST_CFG_HOST", "db.local")
	p := writeFile(t, "name: demo\nport: 8080\nhosts: [\"${TEST_CFG_HOST}\"]\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "demo" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Hosts) != 1 || cfg.Hosts[0] != "db.local" {
		t.Errorf("hosts = %v", cfg.Hosts)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOSTS", "a,b")
	p := writeFile(t, "name: demo\nport: 8080\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if len(cfg.Hosts) != 2 {
		t.Errorf("hosts = %v", cfg.Hosts)
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg := testConfig{Name: "default", Port: 3000}
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 3000 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	var cfg testConfig
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "port: [\n")
	var cfg testConfig
	if err := Load(p, &cfg); err == nil {
		t.Error("expected parse error")
	}
}
