package config

import "sort"

// Presets tweak DefaultConfig for common rigs and tick rates.
var Presets = map[string]func(*Config){
	"100hz": func(c *Config) {
		c.Loop.Period = 0.01
	},
	"50hz": func(c *Config) {
		c.Loop.Period = 0.02
		// Same servo, sampled every 20 ms.
		c.Hysteresis.Coefficients = []float64{0, -4.7, -2.6, -1.1, -0.4, -0.15, -0.05}
	},
	"bench": func(c *Config) {
		c.Backend = "sim"
		c.Loop.Duration = 10
		c.Loop.ResetOnRelease = false
		c.Log.Level = "debug"
		c.Log.Development = true
	},
	"hardware": func(c *Config) {
		c.Backend = "hw"
		c.Sim.Script = nil
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// ApplyPreset applies the named preset on top of cfg.
func ApplyPreset(cfg *Config, name string) bool {
	apply, ok := Presets[name]
	if ok {
		apply(cfg)
	}
	return ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
