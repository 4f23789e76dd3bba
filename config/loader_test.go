package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
server:
  port: 8080
bus:
  tripUpdatesURL: "https://example.com/gtfsrt/trip-updates"
  routeIDs: ["20", "35"]
  schedulePath: "schedule.json"
train:
  baseURL: "https://api.sncf.com/v1"
  stationID: "stop_area:SNCF:87734004"
stopGroups:
  all: ["GERZA1", "GERZA2", "PATUR1"]
  gerzat: ["GERZA1", "GERZA2"]
  patural: ["PATUR1"]
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SNCF_API_KEY", "test-key")
	cfg, err := Load(writeTempConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Train.CacheTTLSec != 120 {
		t.Errorf("cacheTTLSeconds default = %d, want 120", cfg.Train.CacheTTLSec)
	}
	if cfg.Reconcile.MatchWindowHours != 12 {
		t.Errorf("matchWindowHours default = %d, want 12", cfg.Reconcile.MatchWindowHours)
	}
	if cfg.Train.APIKey != "test-key" {
		t.Errorf("API key not read from environment")
	}
	if len(cfg.StopGroups["gerzat"]) != 2 {
		t.Errorf("stop group gerzat = %v", cfg.StopGroups["gerzat"])
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := writeTempConfig(t, "server:\n  port: -1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for negative port")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
