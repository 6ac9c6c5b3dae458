// Package config holds the node and application configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/pelletier/go-toml"

	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/attest"
	"github.com/blockberries/emblem/logs"
	"github.com/blockberries/emblem/program"
)

// Config is the full node configuration.
type Config struct {
	App    AppConfig    `toml:"app"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// AppConfig configures the vault application.
type AppConfig struct {
	// Base58 program identifiers.
	ProgramID         string `toml:"program_id"`
	RegistryProgramID string `toml:"registry_program_id"`
	// RequireBoundApproval makes the signed approval message cover
	// (external token id, price, timestamp).
	RequireBoundApproval bool `toml:"require_bound_approval"`
	MaxTxBytes           int  `toml:"max_tx_bytes"`
	// RetainBlocks is reported to the engine as the pruning window.
	// Zero retains everything.
	RetainBlocks uint64 `toml:"retain_blocks"`
}

// StoreConfig configures committed state storage.
type StoreConfig struct {
	Dir       string `toml:"dir"`
	InMemory  bool   `toml:"in_memory"`
	CacheSize int    `toml:"cache_size"`
}

// ServerConfig configures the gRPC listener.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration of a fresh node.
func Default() *Config {
	return &Config{
		App: AppConfig{
			ProgramID:         address.VaultProgramID.String(),
			RegistryProgramID: address.RegistryProgramID.String(),
			MaxTxBytes:        64 << 10,
			RetainBlocks:      0,
		},
		Store: StoreConfig{
			Dir:       "data",
			CacheSize: 4096,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:26658",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func isPublicKey(value interface{}) error {
	s, _ := value.(string)
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return errors.New("must be a base58 public key")
	}
	return nil
}

func isLevel(value interface{}) error {
	s, _ := value.(string)
	_, err := logs.ParseLevel(s)
	return err
}

// Validate implements validation.Validatable.
func (a AppConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ProgramID, validation.Required, validation.By(isPublicKey)),
		validation.Field(&a.RegistryProgramID, validation.Required, validation.By(isPublicKey)),
		validation.Field(&a.MaxTxBytes, validation.Required, validation.Min(1024)),
	)
}

// Validate implements validation.Validatable.
func (s StoreConfig) Validate() error {
	var dirRules []validation.Rule
	if !s.InMemory {
		dirRules = append(dirRules, validation.Required)
	}
	return validation.ValidateStruct(&s,
		validation.Field(&s.Dir, dirRules...),
		validation.Field(&s.CacheSize, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ListenAddr, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(isLevel)),
	)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.App.ProgramID == c.App.RegistryProgramID {
		return errors.New("app: program_id and registry_program_id must differ")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.App),
		validation.Field(&c.Store),
		validation.Field(&c.Server),
		validation.Field(&c.Log),
	)
}

// LoadFile reads a TOML file over the defaults and validates the
// result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML, fills unset values from Default and validates
// the result.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fillDefaults(Default())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) fillDefaults(d *Config) {
	setString(&c.App.ProgramID, d.App.ProgramID)
	setString(&c.App.RegistryProgramID, d.App.RegistryProgramID)
	if c.App.MaxTxBytes == 0 {
		c.App.MaxTxBytes = d.App.MaxTxBytes
	}
	if !c.Store.InMemory {
		setString(&c.Store.Dir, d.Store.Dir)
	}
	if c.Store.CacheSize == 0 {
		c.Store.CacheSize = d.Store.CacheSize
	}
	setString(&c.Server.ListenAddr, d.Server.ListenAddr)
	setString(&c.Log.Level, d.Log.Level)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Program returns the vault program configuration.
func (a AppConfig) Program() (program.Config, error) {
	id, err := solana.PublicKeyFromBase58(a.ProgramID)
	if err != nil {
		return program.Config{}, fmt.Errorf("program_id: %w", err)
	}
	reg, err := solana.PublicKeyFromBase58(a.RegistryProgramID)
	if err != nil {
		return program.Config{}, fmt.Errorf("registry_program_id: %w", err)
	}
	return program.Config{
		ProgramID:         id,
		RegistryProgramID: reg,
		Verifier:          attest.NewVerifier(a.RequireBoundApproval),
	}, nil
}

// Logger builds the configured logger.
func (l LogConfig) Logger() logs.Logger {
	level, err := logs.ParseLevel(l.Level)
	if err != nil {
		level = logs.LevelInfo
	}
	return logs.New(os.Stderr, level)
}
