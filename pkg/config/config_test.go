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
	valid bool
}

var errInvalid = errors.New("invalid")

func (s *sample) Validate() error {
	s.valid = true
	if s.Port <= 0 {
		return errInvalid
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("QUIRE_TEST_NAME", "notes")
	path := writeConfig(t, "name: ${QUIRE_TEST_NAME}\n")

	s := &sample{Port: 8080}
	if err := Load(path, s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "notes" || s.Port != 8080 || !s.valid {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeConfig(t, "port: 0\n")
	err := Load(path, &sample{})
	if !errors.Is(err, errInvalid) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{Port: 1})
	if err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional_MissingFileValidatesDefaults(t *testing.T) {
	s := &sample{Port: 9000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if !s.valid {
		t.Error("defaults were not validated")
	}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); !errors.Is(err, errInvalid) {
		t.Errorf("invalid defaults err = %v", err)
	}
}
