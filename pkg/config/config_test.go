package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
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

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("DAYMARK_TEST_TOKEN", "s3cret")
	p := writeFile(t, "port: 9000\ntoken: ${DAYMARK_TEST_TOKEN}\n")

	cfg := sample{Name: "default"}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := (sample{Name: "default", Port: 9000, Token: "s3cret"}); cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	var cfg sample
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("Load = %v, want validation error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg := sample{Port: 8080}
	if err := LoadOptional(missing, &cfg); err != nil || cfg.Port != 8080 {
		t.Errorf("missing file: port = %d, err = %v", cfg.Port, err)
	}

	bad := sample{}
	if err := LoadOptional(missing, &bad); err == nil {
		t.Error("defaults are still validated")
	}

	p := writeFile(t, "port: 1234\n")
	if err := LoadOptional(p, &cfg); err != nil || cfg.Port != 1234 {
		t.Errorf("file: port = %d, err = %v", cfg.Port, err)
	}
}
