package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CFG_TEST_SET", "value")
	t.Setenv("CFG_TEST_EMPTY", "")

	cases := map[string]string{
		"${CFG_TEST_SET}":             "value",
		"${CFG_TEST_SET:-other}":      "value",
		"${CFG_TEST_EMPTY:-fallback}": "fallback",
		"${CFG_TEST_UNSET:-8080}":     "8080",
		"${CFG_TEST_UNSET}":           "",
		"$CFG_TEST_SET/x":             "value/x",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_KeepsDefaultsAndValidates(t *testing.T) {
	t.Setenv("CFG_TEST_PORT", "")
	path := writeFile(t, "port: ${CFG_TEST_PORT:-9000}\n")

	cfg := sample{Name: "default"}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}

	bad := writeFile(t, "name: x\n")
	if err := Load(bad, &sample{}); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := writeFile(t, "port: [unterminated\n")
	if err := Load(path, &sample{Port: 1}); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg := sample{Port: 1}
	loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	if err != nil || loaded {
		t.Fatalf("missing file: loaded=%v err=%v", loaded, err)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &sample{}); err == nil {
		t.Error("defaults are still validated")
	}

	loaded, err = LoadOrDefault(writeFile(t, "port: 7\n"), &cfg)
	if err != nil || !loaded || cfg.Port != 7 {
		t.Errorf("present file: loaded=%v err=%v cfg=%+v", loaded, err, cfg)
	}
}
