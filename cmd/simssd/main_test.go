package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, dir string, body string) string {
	t.Helper()

	path := filepath.Join(dir, "config.json")
	require := os.WriteFile(path, []byte(body), 0o644)
	if require != nil {
		t.Fatal(require)
	}

	return path
}

func TestRunReturnsSuccessOnValidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"host_system": {"max_index": 4},
		"traffic_generator": {"num_transactions": 5, "interval_ns": 10, "end_address": 1024, "address_increment": 64, "databyte_value": 64},
		"cache": {"size_kb": 32, "line_size": 64, "associativity": 4},
		"dram": {"num_banks": 8, "num_bank_groups": 2, "num_ranks": 1},
		"flash": {"num_channels": 1, "dies_per_channel": 1, "command_queue_depth": 4, "page_size_kb": 4, "pages_per_block": 4, "blocks_per_die": 4, "num_planes": 1}
	}`)

	code := run([]string{dir})

	assert.Equal(t, exitSuccess, code)
}

func TestRunReturnsConfigErrorOnMissingDirectory(t *testing.T) {
	code := run([]string{filepath.Join(t.TempDir(), "does-not-exist")})

	assert.Equal(t, exitConfig, code)
}
