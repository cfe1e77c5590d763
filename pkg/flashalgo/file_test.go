package flashalgo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "algo.json")
	body := `{
		"instructions": [1, 2, 3, 4],
		"load_address": 536870912,
		"static_base": 536870912,
		"begin_stack": 536874496,
		"page_buffers": [536879104],
		"pc_init": 536870913,
		"pc_uninit": 536870917,
		"pc_erase_sector": 536870921,
		"pc_program_page": 536870925
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	algo, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(536870912), algo.LoadAddress)
	require.Len(t, algo.Instructions, 4)
	require.False(t, algo.SupportsEraseAll(), "pc_erase_all was omitted")
}

func TestLoadFromFileRejectsInvalidAlgorithm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "algo.json")
	// pc_init falls outside the code range: invalid.
	body := `{
		"instructions": [1],
		"load_address": 0,
		"page_buffers": [100],
		"pc_init": 1000,
		"pc_uninit": 0,
		"pc_erase_sector": 0,
		"pc_program_page": 0
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}
