package flashload

import "fmt"

// MemoryRegionNotDefinedError reports that an address has no corresponding
// region in the target's memory map.
type MemoryRegionNotDefinedError struct {
	Address uint32
}

func (e *MemoryRegionNotDefinedError) Error() string {
	return fmt.Sprintf("flashload: no memory region defined for address 0x%08X", e.Address)
}

// MemoryRegionNotFlashError reports that an address falls in a defined
// region that isn't flash, so it can't be queued for programming.
type MemoryRegionNotFlashError struct {
	Address uint32
}

func (e *MemoryRegionNotFlashError) Error() string {
	return fmt.Sprintf("flashload: memory region at address 0x%08X is not flash", e.Address)
}
