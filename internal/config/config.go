// Package config holds the tunable parameters of the simulation server.
// Defaults match the original balance values; a yaml file can override
// any subset of them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EconomyConfig tunes the offer pricing of every station.
type EconomyConfig struct {
	// MaxExpectedProduct scales the surplus/deficit before the
	// power-law price nudge is computed.
	MaxExpectedProduct int `yaml:"max_expected_product" json:"max_expected_product"`
	// MaxPriceChangeFrac caps one nudge at this fraction of a ware's
	// price range.
	MaxPriceChangeFrac float64 `yaml:"max_price_change_frac" json:"max_price_change_frac"`
	PriceCurveExponent float64 `yaml:"price_curve_exponent" json:"price_curve_exponent"`
}

// ShipPreset describes the freighter commissioned by the market scan.
type ShipPreset struct {
	MaxSpeed      float64 `yaml:"max_speed" json:"max_speed"`
	CargoCapacity int     `yaml:"cargo_capacity" json:"cargo_capacity"`
	WeaponAttack  float64 `yaml:"weapon_attack" json:"weapon_attack"`
	BuildTime     float64 `yaml:"build_time" json:"build_time"`
}

// WorldConfig controls the seeded starting universe.
type WorldConfig struct {
	SiliconStations int     `yaml:"silicon_stations" json:"silicon_stations"`
	WaferStations   int     `yaml:"wafer_stations" json:"wafer_stations"`
	Extent          float64 `yaml:"extent" json:"extent"` // stations spawn in [-extent, extent]^2
	Seed            int64   `yaml:"seed" json:"seed"`     // 0 means derive from the clock
}

// Config is the root configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	DBPath     string `yaml:"db_path" json:"db_path"`

	// Frame pacing for the real-time run mode.
	TickIntervalMS int     `yaml:"tick_interval_ms" json:"tick_interval_ms"`
	TimeScale      float64 `yaml:"time_scale" json:"time_scale"`

	Economy EconomyConfig `yaml:"economy" json:"economy"`

	DockCapacity      int     `yaml:"dock_capacity" json:"dock_capacity"`
	TradeCooldownMax  float64 `yaml:"trade_cooldown_max" json:"trade_cooldown_max"`
	CombatEngageRange float64 `yaml:"combat_engage_range" json:"combat_engage_range"`

	MarketScanInterval  float64 `yaml:"market_scan_interval" json:"market_scan_interval"`
	MarketScanThreshold int     `yaml:"market_scan_threshold" json:"market_scan_threshold"`

	Freighter ShipPreset `yaml:"freighter" json:"freighter"`

	World WorldConfig `yaml:"world" json:"world"`

	// Channel buffer sizes for the WebSocket surface.
	ClientSendBuffer int `yaml:"client_send_buffer" json:"client_send_buffer"`
	// Per-client inbound command rate limit (token bucket).
	ClientMsgRate  float64 `yaml:"client_msg_rate" json:"client_msg_rate"`
	ClientMsgBurst int     `yaml:"client_msg_burst" json:"client_msg_burst"`
}

// Default returns the production defaults.
func Default() *Config {
	return &Config{
		ListenAddr:     ":8080",
		DBPath:         "starlanes.db",
		TickIntervalMS: 50,
		TimeScale:      1.0,

		Economy: EconomyConfig{
			MaxExpectedProduct: 1000,
			MaxPriceChangeFrac: 0.1,
			PriceCurveExponent: 0.5,
		},

		DockCapacity:      5,
		TradeCooldownMax:  60,
		CombatEngageRange: 25,

		MarketScanInterval:  5,
		MarketScanThreshold: 500,

		Freighter: ShipPreset{
			MaxSpeed:      600,
			CargoCapacity: 100,
			WeaponAttack:  1.0,
			BuildTime:     10,
		},

		World: WorldConfig{
			SiliconStations: 1000,
			WaferStations:   1000,
			Extent:          25000,
			Seed:            0,
		},

		ClientSendBuffer: 256,
		ClientMsgRate:    10,
		ClientMsgBurst:   20,
	}
}

// Load reads a yaml file and merges it over the defaults. A missing
// path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
