package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 65536, cfg.Bus.IngressCapacity)
	assert.Equal(t, 65536, cfg.Bus.PerSubCapacity)
	assert.Equal(t, uint64(1_000_000_000), cfg.Bar.BucketNs)
	assert.Equal(t, 1.0, cfg.Replay.Speed)
}

func TestLoad_OverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := `
Bus:
  IngressCapacity: 128
Replay:
  Path: events.log
  Speed: 2.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Bus.IngressCapacity)
	assert.Equal(t, 65536, cfg.Bus.PerSubCapacity, "unset fields keep their default")
	assert.Equal(t, "events.log", cfg.Replay.Path)
	assert.Equal(t, 2.5, cfg.Replay.Speed)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
