package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RankingProfile is the on-disk override for ranking defaults. Zero values
// leave the environment-derived settings untouched.
type RankingProfile struct {
	DefaultRadiusKm float64        `yaml:"default_radius_km"`
	DefaultTopK     int            `yaml:"default_top_k"`
	MaxTopK         int            `yaml:"max_top_k"`
	FallbackLimit   int            `yaml:"fallback_limit"`
	Weights         *WeightsConfig `yaml:"weights"`
}

// LoadRankingProfile reads and parses a YAML ranking profile.
func LoadRankingProfile(path string) (*RankingProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranking profile: %w", err)
	}

	var profile RankingProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse ranking profile: %w", err)
	}
	return &profile, nil
}

// ApplyRankingProfile loads the profile at path and merges it into cfg.
func ApplyRankingProfile(cfg *RankingConfig, path string) error {
	profile, err := LoadRankingProfile(path)
	if err != nil {
		return err
	}

	if profile.DefaultRadiusKm > 0 {
		cfg.DefaultRadiusKm = profile.DefaultRadiusKm
	}
	if profile.DefaultTopK > 0 {
		cfg.DefaultTopK = profile.DefaultTopK
	}
	if profile.MaxTopK > 0 {
		cfg.MaxTopK = profile.MaxTopK
	}
	if profile.FallbackLimit > 0 {
		cfg.FallbackLimit = profile.FallbackLimit
	}
	if profile.Weights != nil {
		cfg.Weights = *profile.Weights
	}
	return nil
}
