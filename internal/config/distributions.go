package config

import (
	"fmt"
	"os"
	"path/filepath"

	"nflsrs/ratings/internal/bayes"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Keys of the distributions file
const (
	keyMargins  = "margins"
	keyRankings = "rankings"
)

// LoadDistributions reads the fitted standard deviations from a YAML file.
// Keys absent from the file keep the values in base.
func LoadDistributions(path string, base bayes.Distributions) (bayes.Distributions, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return bayes.Distributions{}, fmt.Errorf("failed to load distributions file %s: %w", path, err)
	}

	d := base
	if k.Exists(keyMargins) {
		d.Margins = k.Float64(keyMargins)
	}
	if k.Exists(keyRankings) {
		d.Rankings = k.Float64(keyRankings)
	}
	return d, nil
}

// WriteDistributions stores fitted standard deviations as YAML
func WriteDistributions(path string, d bayes.Distributions) error {
	if err := d.Validate(); err != nil {
		return err
	}

	k := koanf.New(".")
	if err := k.Set(keyMargins, d.Margins); err != nil {
		return err
	}
	if err := k.Set(keyRankings, d.Rankings); err != nil {
		return err
	}

	b, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to encode distributions: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write distributions file: %w", err)
	}
	return nil
}
