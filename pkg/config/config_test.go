package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestIni(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "flashmgr.ini")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadReadsIniValues(t *testing.T) {
	dir := t.TempDir()
	writeTestIni(t, dir, `
port = /dev/ttyACM0
data_rate = 115200
timeout = 10
flash_page_size = 128
flash_sector_size = 2048
ram_size = 4096
erased_byte = 255
`)

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer cfg.Close()

	if cfg.Port != "/dev/ttyACM0" {
		t.Errorf("Port = %q, want /dev/ttyACM0", cfg.Port)
	}
	if cfg.DataRate != 115200 {
		t.Errorf("DataRate = %d, want 115200", cfg.DataRate)
	}
	if cfg.FlashPageSize != 128 {
		t.Errorf("FlashPageSize = %d, want 128", cfg.FlashPageSize)
	}
	if cfg.ErasedByte != 0xFF {
		t.Errorf("ErasedByte = %X, want FF", cfg.ErasedByte)
	}
}

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer cfg.Close()

	if cfg.DataRate != 6_000_000 {
		t.Errorf("DataRate = %d, want default 6000000", cfg.DataRate)
	}
	if cfg.ErasedByte != 0xFF {
		t.Errorf("ErasedByte = %X, want default FF", cfg.ErasedByte)
	}
}

func TestSetTargetOverridesFlashGeometry(t *testing.T) {
	cfg := &Config{}
	cfg.SetTarget("STM32F4")
	if cfg.FlashPageSize != 256 || cfg.FlashSectorSize != 16*1024 {
		t.Errorf("SetTarget(stm32f4) geometry = %+v, want page=256 sector=16384", cfg)
	}
}

func TestConfigPathSearchesKnownLocations(t *testing.T) {
	dir := t.TempDir()
	writeTestIni(t, dir, "port = COM1\n")

	t.Setenv("FLASHMGR", dir)
	wd, _ := os.Getwd()
	other := t.TempDir()
	defer os.Chdir(wd)
	if err := os.Chdir(other); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("ConfigPath() = %q, want a file under %q", path, dir)
	}
}
