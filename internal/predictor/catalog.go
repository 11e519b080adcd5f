package predictor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CheckpointTable maps each known configuration to its checkpoint file.
var CheckpointTable = map[string]string{
	"sam2.1_hiera_b+.yaml": "sam2.1_hiera_base_plus.pt",
	"sam2.1_hiera_l.yaml":  "sam2.1_hiera_large.pt",
	"sam2.1_hiera_s.yaml":  "sam2.1_hiera_small.pt",
	"sam2.1_hiera_t.yaml":  "sam2.1_hiera_tiny.pt",
}

const defaultCheckpoint = "sam2.1_hiera_base_plus.pt"

// CheckpointFor looks up the checkpoint paired with config.
func CheckpointFor(config string) (string, bool) {
	ckpt, ok := CheckpointTable[config]
	return ckpt, ok
}

// DiscoverConfigs lists the configuration files in dir, sorted by name.
func DiscoverConfigs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config directory: %w", err)
	}

	var configs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			configs = append(configs, entry.Name())
		}
	}
	sort.Strings(configs)
	return configs, nil
}

// DefaultConfigIndex prefers the base-plus model and falls back to 0.
func DefaultConfigIndex(configs []string) int {
	for i, c := range configs {
		if CheckpointTable[c] == defaultCheckpoint {
			return i
		}
	}
	return 0
}
