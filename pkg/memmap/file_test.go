package memmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")
	body := `[
		{"name": "ram", "kind": "ram", "start": 536870912, "length": 65536},
		{"name": "flash0", "kind": "flash", "start": 134217728, "length": 16384, "block_size": 1024, "erased_byte": 255}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	mm, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, mm.Regions(), 2)

	flash, ok := mm.GetRegionForAddress(134217728)
	require.True(t, ok)
	require.Equal(t, Flash, flash.Kind)
	require.Equal(t, uint32(1024), flash.BlockSize)
	require.Equal(t, byte(0xFF), flash.ErasedByte)

	ram, ok := mm.GetRegionForAddress(536870912)
	require.True(t, ok)
	require.Equal(t, Ram, ram.Kind)
}

func TestLoadFromFileRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")
	body := `[{"name": "weird", "kind": "nvram", "start": 0, "length": 16}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}
