package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cosmos/treapx"
)

// ParseOptions parses a store options document, YAML or JSON, then applies environment overrides.
// An empty document yields the defaults.
func ParseOptions(doc string) (treapx.Options, error) {
	var opts treapx.Options
	if doc != "" {
		if err := yaml.Unmarshal([]byte(doc), &opts); err != nil {
			if jsonErr := json.Unmarshal([]byte(doc), &opts); jsonErr != nil {
				return treapx.Options{}, fmt.Errorf("failed to parse options as YAML (%v) or JSON (%v)", err, jsonErr)
			}
		}
	}
	if err := optionsFromEnv(&opts); err != nil {
		return treapx.Options{}, err
	}
	if opts.ArenaChunk < 0 {
		return treapx.Options{}, fmt.Errorf("arena_chunk must not be negative, got %d", opts.ArenaChunk)
	}
	return opts, nil
}

func optionsFromEnv(opts *treapx.Options) error {
	if v := os.Getenv("TREAPX_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TREAPX_SEED %q: %w", v, err)
		}
		opts.Seed = seed
	}
	if v := os.Getenv("TREAPX_ARENA"); v != "" {
		arena, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TREAPX_ARENA %q: %w", v, err)
		}
		opts.Arena = arena
	}
	return nil
}
