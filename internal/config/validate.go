package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 1")
	}
	if c.Matching.AIBandLow < 0 || c.Matching.AIBandLow > 1 {
		return errors.New("matching.ai_band_low must be between 0 and 1")
	}
	if c.Matching.AIBandLow >= c.Matching.FuzzyThreshold {
		return errors.New("matching.ai_band_low must be below matching.fuzzy_threshold")
	}
	if c.Matching.AIAcceptFloor < 0 || c.Matching.AIAcceptFloor > 1 {
		return errors.New("matching.ai_accept_floor must be between 0 and 1")
	}
	for name, limit := range map[string]int{
		"matching.direct_limit": c.Matching.DirectLimit,
		"matching.fuzzy_limit":  c.Matching.FuzzyLimit,
		"matching.ai_limit":     c.Matching.AILimit,
	} {
		if limit < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !c.LLM.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/corella/config.toml"
		}
		return fmt.Errorf("llm.api_key is required when llm.enabled is true. Set CORELLA_LLM_API_KEY env var or edit %s (create with 'corella config init')", defaultPath)
	}
	if c.LLM.BaseURL == "" {
		return errors.New("llm.base_url must be set when llm.enabled is true")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set when llm.enabled is true")
	}
	return nil
}
