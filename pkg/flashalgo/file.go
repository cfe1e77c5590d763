package flashalgo

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFromFile reads a flash algorithm descriptor from a JSON file and
// validates it. There's no ecosystem library in the example pack for this
// descriptor format (it's specific to this tool, the way pyOCD's own flash
// algorithm packs are specific to pyOCD), so this uses stdlib encoding/json
// rather than a third-party serializer.
func LoadFromFile(path string) (Algorithm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Algorithm{}, fmt.Errorf("flashalgo: reading %s: %w", path, err)
	}

	var algo Algorithm
	if err := json.Unmarshal(data, &algo); err != nil {
		return Algorithm{}, fmt.Errorf("flashalgo: parsing %s: %w", path, err)
	}
	if err := algo.Validate(); err != nil {
		return Algorithm{}, fmt.Errorf("flashalgo: %s: %w", path, err)
	}
	return algo, nil
}
