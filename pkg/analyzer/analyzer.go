// Package analyzer classifies flash pages as already-matching the image
// ("same") or needing a program, using two strategies: an on-target CRC32
// computation and a cheap partial-read negative filter.
package analyzer

import "github.com/coreflash/flashmgr/pkg/memmap"

// Page is the slice of FlashPage state the analyzer needs to read and
// mutate. It is a small interface rather than a dependency on
// pkg/flashbuilder's concrete type, so flashbuilder can import analyzer
// without a cycle.
type Page interface {
	BaseAddr() uint32
	Size() uint32
	Data() []byte
	SetSame(memmap.Tristate)
	Same() memmap.Tristate
}

// Target is the subset of pkg/target.Target the analyzer needs: a plain
// memory read, used by the partial-read strategy. The driver-level CRC32
// call is the separate CRC interface below.
type Target interface {
	ReadMemoryBlock8(addr uint32, length int) ([]byte, error)
}

// CRC is the subset of pkg/flash.Driver needed to run the on-target CRC32
// computation.
type CRC interface {
	// ComputeCRCs returns one CRC32 word per (addr, size) sector, in order.
	ComputeCRCs(sectors []Sector) ([]uint32, error)
}

// Sector is one (address, size) pair submitted to the CRC analyzer; size
// must be a power of two and addr must be a multiple of size.
type Sector struct {
	Addr uint32
	Size uint32
}
