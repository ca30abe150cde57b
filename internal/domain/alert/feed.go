package alert

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedFile is the on-disk layout of an alert seed file.
type FeedFile struct {
	Alerts []*Alert `yaml:"alerts"`
}

// ParseFeed decodes alerts from YAML. Lifecycle defaults are filled in later
// by Store.Ingest.
func ParseFeed(data []byte) ([]*Alert, error) {
	var file FeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse alert feed: %w", err)
	}
	for i, a := range file.Alerts {
		if a == nil {
			return nil, fmt.Errorf("%w: alert feed entry %d is empty", ErrValidation, i)
		}
	}
	return file.Alerts, nil
}

// LoadFeed reads and decodes a seed file.
func LoadFeed(path string) ([]*Alert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFeed(data)
}

// Seed loads path into store and returns the number of alerts added.
func Seed(ctx context.Context, store *Store, path string) (int, error) {
	alerts, err := LoadFeed(path)
	if err != nil {
		return 0, err
	}
	n, err := store.Ingest(ctx, alerts...)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", path, err)
	}
	return n, nil
}
