package memmap

import "fmt"

// MemoryMap is an ordered, read-only collection of memory regions built once
// at session start. Regions must not overlap.
type MemoryMap struct {
	regions []Region
}

// New builds a MemoryMap from the given regions, validating that none of
// them overlap.
func New(regions ...Region) (*MemoryMap, error) {
	m := &MemoryMap{regions: append([]Region(nil), regions...)}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryMap) validate() error {
	for i, a := range m.regions {
		for j, b := range m.regions {
			if i == j {
				continue
			}
			if a.Start <= b.LastByte() && b.Start <= a.LastByte() {
				return fmt.Errorf("memmap: region %q [0x%X,0x%X] overlaps region %q [0x%X,0x%X]",
					a.Name, a.Start, a.LastByte(), b.Name, b.Start, b.LastByte())
			}
		}
	}
	return nil
}

// GetRegionForAddress returns the region containing addr, if any.
func (m *MemoryMap) GetRegionForAddress(addr uint32) (Region, bool) {
	for _, r := range m.regions {
		if r.ContainsAddress(addr) {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns all regions in the map, in the order they were added.
func (m *MemoryMap) Regions() []Region {
	return append([]Region(nil), m.regions...)
}

// RegionsOfKind returns all regions matching kind.
func (m *MemoryMap) RegionsOfKind(kind RegionKind) []Region {
	var out []Region
	for _, r := range m.regions {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// BootMemory returns the first ROM or Flash region in the map, used as the
// default base address for binary file loads that don't specify one.
func (m *MemoryMap) BootMemory() (Region, bool) {
	for _, r := range m.regions {
		if r.Kind == Rom || r.Kind == Flash {
			return r, true
		}
	}
	return Region{}, false
}
