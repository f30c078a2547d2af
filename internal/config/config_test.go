package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.DockCapacity != 5 {
		t.Errorf("Expected dock capacity 5, got %d", cfg.DockCapacity)
	}
	if cfg.MarketScanInterval != 5 {
		t.Errorf("Expected market scan every 5s, got %.1f", cfg.MarketScanInterval)
	}
	if cfg.MarketScanThreshold != 500 {
		t.Errorf("Expected market scan threshold 500, got %d", cfg.MarketScanThreshold)
	}
	if cfg.Freighter.MaxSpeed != 600 || cfg.Freighter.CargoCapacity != 100 {
		t.Errorf("Unexpected freighter preset: %+v", cfg.Freighter)
	}
	if cfg.Economy.MaxExpectedProduct != 1000 {
		t.Errorf("Expected max expected product 1000, got %d", cfg.Economy.MaxExpectedProduct)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/starlanes.yaml")
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default listen addr, got %s", cfg.ListenAddr)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen_addr: ":9090"
economy:
  max_price_change_frac: 0.2
world:
  silicon_stations: 10
  seed: 42
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected overridden listen addr, got %s", cfg.ListenAddr)
	}
	if cfg.Economy.MaxPriceChangeFrac != 0.2 {
		t.Errorf("Expected overridden price change frac, got %.2f", cfg.Economy.MaxPriceChangeFrac)
	}
	if cfg.World.SiliconStations != 10 || cfg.World.Seed != 42 {
		t.Errorf("Expected overridden world config, got %+v", cfg.World)
	}

	// Untouched keys keep their defaults.
	if cfg.DockCapacity != 5 {
		t.Errorf("Expected default dock capacity preserved, got %d", cfg.DockCapacity)
	}
	if cfg.Economy.MaxExpectedProduct != 1000 {
		t.Errorf("Expected default max expected product preserved, got %d", cfg.Economy.MaxExpectedProduct)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unclosed"), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("Expected error for malformed yaml")
	}
}
