package memmap

import "testing"

func TestRegionContainsAddress(t *testing.T) {
	r := NewFlashRegion("flash0", 0x1000, 0x1000, 0x100, 0xFF)

	tests := []struct {
		name string
		addr uint32
		want bool
	}{
		{"start", 0x1000, true},
		{"middle", 0x1800, true},
		{"last byte", 0x1FFF, true},
		{"one past end", 0x2000, false},
		{"before start", 0x0FFF, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ContainsAddress(tt.addr); got != tt.want {
				t.Errorf("ContainsAddress(0x%X) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestRegionContainsRange(t *testing.T) {
	r := NewFlashRegion("flash0", 0x1000, 0x1000, 0x100, 0xFF)

	if !r.ContainsRange(0x1000, 0x1000) {
		t.Error("expected full region range to be contained")
	}
	if r.ContainsRange(0x1F00, 0x200) {
		t.Error("expected range crossing the end boundary to be rejected")
	}
	if r.ContainsRange(0x0F00, 0x100) {
		t.Error("expected range before the region to be rejected")
	}
}

func TestNewFlashRegionInvariants(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero blocksize")
		}
	}()
	NewFlashRegion("bad", 0x1000, 0x1000, 0, 0xFF)
}

func TestNewFlashRegionUnalignedStart(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unaligned start")
		}
	}()
	NewFlashRegion("bad", 0x1010, 0x1000, 0x100, 0xFF)
}

func TestIsErased(t *testing.T) {
	r := NewFlashRegion("flash0", 0, 0x100, 0x100, 0xFF)

	if !r.IsErased([]byte{0xFF, 0xFF, 0xFF}) {
		t.Error("expected all-0xFF data to be erased")
	}
	if r.IsErased([]byte{0xFF, 0x00, 0xFF}) {
		t.Error("expected data with a non-erased byte to not be erased")
	}
	if !r.IsErased(nil) {
		t.Error("expected empty data to be vacuously erased")
	}
}
