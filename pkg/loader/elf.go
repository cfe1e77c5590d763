package loader

import (
	"debug/elf"
	"fmt"

	"github.com/coreflash/flashmgr/pkg/memmap"
)

// ElfLoader loads the flash-destined sections of an ELF executable. There's
// no third-party ELF reader in the example pack, so this uses the stdlib
// debug/elf package (see DESIGN.md). Grounded on
// original_source/src/load.rs's download_elf: a section is a candidate if
// it's allocated and not write-only (SHF_ALLOC set, SHF_WRITE clear) and has
// program data (excludes .bss/SHT_NOBITS); if MemoryMap is set, sections
// outside a Flash region are skipped.
type ElfLoader struct {
	BaseLoader
	file *elf.File

	// MemoryMap, if set, restricts Process to sections that fall within a
	// Flash-kind region.
	MemoryMap *memmap.MemoryMap
}

// NewElfLoader creates an ELF loader, optionally restricted to sections
// landing in memMap's flash regions.
func NewElfLoader(memMap *memmap.MemoryMap) *ElfLoader {
	return &ElfLoader{MemoryMap: memMap}
}

func (l *ElfLoader) Open(filename string) error {
	f, err := elf.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open ELF file: %w", err)
	}
	l.file = f
	return nil
}

func (l *ElfLoader) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *ElfLoader) Process() error {
	if l.file == nil {
		return fmt.Errorf("file not open")
	}
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}

	for _, section := range l.file.Sections {
		if section.Type == elf.SHT_NOBITS {
			continue
		}
		wantFlags := elf.SHF_ALLOC
		if section.Flags&(elf.SHF_ALLOC|elf.SHF_WRITE) != wantFlags {
			continue
		}
		if section.Size == 0 {
			continue
		}

		if l.MemoryMap != nil {
			region, ok := l.MemoryMap.GetRegionForAddress(uint32(section.Addr))
			if !ok || region.Kind != memmap.Flash {
				continue
			}
		}

		data, err := section.Data()
		if err != nil {
			return fmt.Errorf("reading section %s: %w", section.Name, err)
		}
		if err := l.handler(uint32(section.Addr), data); err != nil {
			return fmt.Errorf("handler failed for section %s: %w", section.Name, err)
		}
	}

	return nil
}
