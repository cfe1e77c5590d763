package memmap

import "testing"

func TestGetRegionForAddress(t *testing.T) {
	ram := NewRegion("ram0", Ram, 0x2000_0000, 0x1_0000)
	flash := NewFlashRegion("flash0", 0, 0x10000, 0x400, 0xFF)

	m, err := New(ram, flash)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if r, ok := m.GetRegionForAddress(0x2000_0010); !ok || r.Kind != Ram {
		t.Errorf("expected RAM region at 0x20000010, got %+v ok=%v", r, ok)
	}
	if r, ok := m.GetRegionForAddress(0x100); !ok || r.Kind != Flash {
		t.Errorf("expected Flash region at 0x100, got %+v ok=%v", r, ok)
	}
	if _, ok := m.GetRegionForAddress(0x5000_0000); ok {
		t.Error("expected no region for unmapped address")
	}
}

func TestNewRejectsOverlap(t *testing.T) {
	a := NewFlashRegion("a", 0, 0x1000, 0x100, 0xFF)
	b := NewFlashRegion("b", 0x800, 0x1000, 0x100, 0xFF)

	if _, err := New(a, b); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestBootMemory(t *testing.T) {
	ram := NewRegion("ram0", Ram, 0, 0x1000)
	flash := NewFlashRegion("flash0", 0x8000_0000, 0x1000, 0x100, 0xFF)

	m, err := New(ram, flash)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	boot, ok := m.BootMemory()
	if !ok || boot.Name != "flash0" {
		t.Errorf("expected flash0 as boot memory, got %+v ok=%v", boot, ok)
	}
}
