// Package program is the vault program: it issues vault records for
// off-ledger token identifiers and redeems them, each step gated by an
// approval from the registered off-ledger signer.
package program

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/attest"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/registry"
	"github.com/blockberries/emblem/types"
)

// Record names used for account discriminators.
const (
	StateRecord = "ProgramState"
	VaultRecord = "Vault"
)

// MaxBaseURILength is the capacity of ProgramState.BaseURI.
const MaxBaseURILength = 200

// AssetRegistry is the collaborator that holds the displayable assets.
type AssetRegistry interface {
	CreateCollection(ctx *ledger.InvokeContext, req registry.CreateCollection, signerSeeds ...[][]byte) error
	CreateAsset(ctx *ledger.InvokeContext, req registry.CreateAsset, signerSeeds ...[][]byte) (solana.PublicKey, error)
	Burn(ctx *ledger.InvokeContext, req registry.Burn, signerSeeds ...[][]byte) error
}

// Config configures a Program.
type Config struct {
	ProgramID         solana.PublicKey
	RegistryProgramID solana.PublicKey
	Verifier          attest.Verifier
}

// DefaultConfig returns the configuration used on a fresh chain.
func DefaultConfig() Config {
	return Config{
		ProgramID:         address.VaultProgramID,
		RegistryProgramID: address.RegistryProgramID,
		Verifier:          attest.NewVerifier(false),
	}
}

// Program implements ledger.Program.
type Program struct {
	id         solana.PublicKey
	registryID solana.PublicKey
	derive     address.Deriver
	verifier   attest.Verifier
	registry   AssetRegistry
}

var _ ledger.Program = (*Program)(nil)

// New returns the vault program using the registry at
// cfg.RegistryProgramID.
func New(cfg Config) *Program {
	return NewWithRegistry(cfg, registry.Client{ProgramID: cfg.RegistryProgramID})
}

// NewWithRegistry returns the vault program using reg.
func NewWithRegistry(cfg Config, reg AssetRegistry) *Program {
	return &Program{
		id:         cfg.ProgramID,
		registryID: cfg.RegistryProgramID,
		derive:     address.New(cfg.ProgramID),
		verifier:   cfg.Verifier,
		registry:   reg,
	}
}

// ID implements ledger.Program.
func (p *Program) ID() solana.PublicKey { return p.id }

// Execute implements ledger.Program.
func (p *Program) Execute(ctx *ledger.InvokeContext, data []byte) error {
	var ix types.VaultInstruction
	if err := cramberry.Unmarshal(data, &ix); err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrInvalidInstruction, err)
	}
	if n := countSet(&ix); n != 1 {
		return fmt.Errorf("%w: %d operations set", emblem.ErrInvalidInstruction, n)
	}
	switch {
	case ix.Initialize != nil:
		return p.initialize(ctx, ix.Initialize)
	case ix.SetBaseURI != nil:
		return p.setBaseURI(ctx, ix.SetBaseURI)
	case ix.UpdateSignerPublicKey != nil:
		return p.updateSigner(ctx, ix.UpdateSignerPublicKey)
	case ix.CreateCollection != nil:
		return p.createCollection(ctx, ix.CreateCollection)
	case ix.Mint != nil:
		return p.mint(ctx, ix.Mint)
	case ix.Claim != nil:
		return p.claim(ctx, ix.Claim)
	default:
		return p.query(ctx, ix.Query)
	}
}

func countSet(ix *types.VaultInstruction) int {
	n := 0
	for _, set := range []bool{
		ix.Initialize != nil,
		ix.CreateCollection != nil,
		ix.Mint != nil,
		ix.Claim != nil,
		ix.SetBaseURI != nil,
		ix.UpdateSignerPublicKey != nil,
		ix.Query != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (p *Program) stateAddress() (solana.PublicKey, error) {
	return p.derive.ProgramState()
}

// loadState reads program state for the current instruction.
func (p *Program) loadState(ctx *ledger.InvokeContext) (*types.ProgramState, error) {
	addr, err := p.stateAddress()
	if err != nil {
		return nil, err
	}
	var st types.ProgramState
	ok, err := ctx.LoadRecord(addr, StateRecord, &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, emblem.ErrNotInitialized
	}
	return &st, nil
}

// authorityAddress is the program's own signing identity, delegate of
// every collection it creates.
func (p *Program) authorityAddress() (solana.PublicKey, error) {
	return p.derive.Authority()
}

var authoritySeeds = [][]byte{[]byte(address.SeedAuthority)}

func validateTokenID(id string) error {
	if id == "" || len(id) > address.MaxSeedLength {
		return fmt.Errorf("%w: %q", emblem.ErrInvalidExternalTokenID, id)
	}
	return nil
}

func validateBaseURI(uri string) error {
	if len(uri) > MaxBaseURILength {
		return fmt.Errorf("%w: %d bytes (max %d)", emblem.ErrInvalidBaseURI, len(uri), MaxBaseURILength)
	}
	return nil
}
