package flashalgo

import "testing"

func validAlgorithm() Algorithm {
	return Algorithm{
		Instructions:  make([]uint32, 64),
		LoadAddress:   0x2000_0000,
		StaticBase:    0x2000_0000,
		BeginStack:    0x2000_0800,
		PageBuffers:   []uint32{0x2000_1000},
		PCInit:        0x2000_0001,
		PCUninit:      0x2000_0011,
		PCEraseSector: 0x2000_0021,
		PCProgramPage: 0x2000_0031,
		PCEraseAll:    0x2000_0041,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validAlgorithm().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsOutOfRangePC(t *testing.T) {
	a := validAlgorithm()
	a.PCProgramPage = 0x9000_0000
	if err := a.Validate(); err == nil {
		t.Fatal("expected error for out-of-range entry point")
	}
}

func TestValidateRejectsNoPageBuffers(t *testing.T) {
	a := validAlgorithm()
	a.PageBuffers = nil
	if err := a.Validate(); err == nil {
		t.Fatal("expected error for missing page buffers")
	}
}

func TestSupportsDoubleBuffering(t *testing.T) {
	a := validAlgorithm()
	if a.SupportsDoubleBuffering() {
		t.Error("single page buffer should not support double buffering")
	}
	a.PageBuffers = append(a.PageBuffers, 0x2000_2000)
	if !a.SupportsDoubleBuffering() {
		t.Error("two page buffers should support double buffering")
	}
}

func TestSupportsEraseAll(t *testing.T) {
	a := validAlgorithm()
	if !a.SupportsEraseAll() {
		t.Error("expected erase-all support when PCEraseAll is set")
	}
	a.PCEraseAll = 0
	if a.SupportsEraseAll() {
		t.Error("expected no erase-all support when PCEraseAll is zero")
	}
}
