package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WatchList is the optional YAML companion to the env configuration,
// listing glob patterns to tail and exclusions
type WatchList struct {
	Paths   []string `yaml:"paths"`
	Exclude []string `yaml:"exclude"`
}

// LoadWatchList loads a watch list YAML file
func LoadWatchList(path string) (*WatchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch list: %w", err)
	}

	var wl WatchList
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("failed to parse watch list: %w", err)
	}

	return &wl, nil
}
