package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem/address"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	pc, err := cfg.App.Program()
	require.NoError(t, err)
	assert.Equal(t, address.VaultProgramID, pc.ProgramID)
	assert.Equal(t, address.RegistryProgramID, pc.RegistryProgramID)
	assert.False(t, pc.Verifier.RequireBound)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[app]
require_bound_approval = true
retain_blocks = 100

[store]
in_memory = true
dir = ""

[server]
listen_addr = "0.0.0.0:9000"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.True(t, cfg.App.RequireBoundApproval)
	assert.Equal(t, uint64(100), cfg.App.RetainBlocks)
	assert.True(t, cfg.Store.InMemory)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, address.VaultProgramID.String(), cfg.App.ProgramID, "unset keys keep defaults")

	pc, err := cfg.App.Program()
	require.NoError(t, err)
	assert.True(t, pc.Verifier.RequireBound)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"bad program id":    func(c *Config) { c.App.ProgramID = "not-base58!" },
		"same program ids":  func(c *Config) { c.App.RegistryProgramID = c.App.ProgramID },
		"tiny tx limit":     func(c *Config) { c.App.MaxTxBytes = 10 },
		"missing store dir": func(c *Config) { c.Store.Dir = "" },
		"missing listen":    func(c *Config) { c.Server.ListenAddr = "" },
		"bad level":         func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emblem.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o600))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
