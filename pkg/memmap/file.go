package memmap

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// fileRegion mirrors Region for JSON decoding, with Kind as a human-readable
// string instead of the RegionKind iota.
type fileRegion struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Start      uint32 `json:"start"`
	Length     uint32 `json:"length"`
	BlockSize  uint32 `json:"block_size,omitempty"`
	ErasedByte byte   `json:"erased_byte,omitempty"`
}

func parseKind(s string) (RegionKind, error) {
	switch strings.ToLower(s) {
	case "ram":
		return Ram, nil
	case "rom":
		return Rom, nil
	case "flash":
		return Flash, nil
	case "device":
		return Device, nil
	case "", "other":
		return Other, nil
	default:
		return Other, fmt.Errorf("memmap: unknown region kind %q", s)
	}
}

// LoadFromFile reads a memory map descriptor from a JSON file: an array of
// regions with name/kind/start/length and, for flash regions, block_size
// and erased_byte. There's no ecosystem library in the example pack for this
// descriptor format, so this uses stdlib encoding/json.
func LoadFromFile(path string) (*MemoryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memmap: reading %s: %w", path, err)
	}

	var raw []fileRegion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("memmap: parsing %s: %w", path, err)
	}

	regions := make([]Region, 0, len(raw))
	for _, fr := range raw {
		kind, err := parseKind(fr.Kind)
		if err != nil {
			return nil, fmt.Errorf("memmap: %s: region %q: %w", path, fr.Name, err)
		}
		if kind == Flash {
			regions = append(regions, NewFlashRegion(fr.Name, fr.Start, fr.Length, fr.BlockSize, fr.ErasedByte))
		} else {
			regions = append(regions, NewRegion(fr.Name, kind, fr.Start, fr.Length))
		}
	}

	return New(regions...)
}
