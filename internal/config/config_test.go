package config

import (
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Plan.DefaultQuantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", cfg.Plan.DefaultQuantity)
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("expected base path /v0, got %q", cfg.Server.BasePath)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Dataset.Path = "recipes/kingdom.csv"
	cfg.Plan.DefaultQuantity = 5
	if err := cfg.Write(dir); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Dataset.Path != "recipes/kingdom.csv" || got.Plan.DefaultQuantity != 5 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestFromYAMLFillsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("dataset:\n  path: other.csv\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Dataset.Path != "other.csv" {
		t.Fatalf("expected override, got %q", cfg.Dataset.Path)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty dataset path", "dataset:\n  path: \"\"\n", "dataset.path"},
		{"zero quantity", "plan:\n  default_quantity: 0\n", "default_quantity"},
		{"empty addr", "server:\n  addr: \"\"\n", "server.addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestFromYAMLMalformed(t *testing.T) {
	if _, err := FromYAML([]byte("dataset: [")); err == nil {
		t.Fatal("expected parse error")
	}
}
