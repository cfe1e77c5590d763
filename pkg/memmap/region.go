// Package memmap describes a target's address space as a set of
// non-overlapping memory regions and answers "which region owns this
// address" for the flash planner.
package memmap

import "fmt"

// RegionKind classifies what a MemoryRegion is used for.
type RegionKind int

const (
	Other RegionKind = iota
	Ram
	Rom
	Flash
	Device
)

func (k RegionKind) String() string {
	switch k {
	case Ram:
		return "RAM"
	case Rom:
		return "ROM"
	case Flash:
		return "Flash"
	case Device:
		return "Device"
	default:
		return "Other"
	}
}

// Tristate is an explicit unknown/yes/no flag, used where a plain bool would
// hide the "haven't checked yet" state.
type Tristate int

const (
	Unknown Tristate = iota
	Yes
	No
)

// Region is an immutable descriptor of one span of the target's address
// space. Flash-kind regions additionally carry the erase/program geometry
// (BlockSize) and the byte value flash reads back as once erased.
type Region struct {
	Name       string     `json:"name"`
	Kind       RegionKind `json:"-"`
	Start      uint32     `json:"start"`
	Length     uint32     `json:"length"`
	BlockSize  uint32     `json:"block_size,omitempty"`
	ErasedByte byte       `json:"erased_byte,omitempty"`
}

// NewRegion builds a non-flash region (RAM, ROM, device, other).
func NewRegion(name string, kind RegionKind, start, length uint32) Region {
	return Region{Name: name, Kind: kind, Start: start, Length: length}
}

// NewFlashRegion builds a Flash-kind region and panics if the invariants in
// spec §3 are violated: blocksize must be positive and start must be a
// multiple of blocksize.
func NewFlashRegion(name string, start, length, blockSize uint32, erasedByte byte) Region {
	if blockSize == 0 {
		panic(fmt.Sprintf("memmap: flash region %q has zero blocksize", name))
	}
	if start%blockSize != 0 {
		panic(fmt.Sprintf("memmap: flash region %q start 0x%X is not a multiple of blocksize 0x%X", name, start, blockSize))
	}
	return Region{
		Name:       name,
		Kind:       Flash,
		Start:      start,
		Length:     length,
		BlockSize:  blockSize,
		ErasedByte: erasedByte,
	}
}

// End returns the address one past the last byte of the region.
func (r Region) End() uint32 {
	return r.Start + r.Length
}

// LastByte returns the last valid address within the region.
func (r Region) LastByte() uint32 {
	return r.Start + r.Length - 1
}

// ContainsAddress reports whether addr falls within [Start, Start+Length).
func (r Region) ContainsAddress(addr uint32) bool {
	return addr >= r.Start && addr <= r.LastByte()
}

// ContainsRange reports whether the half-open range [start, start+length)
// lies entirely within the region.
func (r Region) ContainsRange(start, length uint32) bool {
	if length == 0 {
		return r.ContainsAddress(start)
	}
	end := start + length - 1
	return start >= r.Start && end <= r.LastByte()
}

// IsErased reports whether every byte in data equals the region's erased
// byte value.
func (r Region) IsErased(data []byte) bool {
	for _, b := range data {
		if b != r.ErasedByte {
			return false
		}
	}
	return true
}
