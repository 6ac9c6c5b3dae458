// Package address derives the deterministic account addresses of the
// vault chain.
//
// An address is a program-derived address over a fixed seed tuple, so
// "does this address already hold data" doubles as the uniqueness
// check for program state, collections and vaults.
package address

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
)

// Well-known program identifiers.
var (
	// VaultProgramID is the default identifier of the vault program.
	VaultProgramID = solana.MustPublicKeyFromBase58("DMLBNjTTdxA3Tnbx21ZsQU3hX1VUSW4SENPb3HCZrBCr")
	// RegistryProgramID is the default identifier of the asset registry.
	RegistryProgramID = solana.MustPublicKeyFromBase58("CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d")
	// Ed25519ProgramID is the signature verification precompile.
	Ed25519ProgramID = solana.MustPublicKeyFromBase58("Ed25519SigVerify111111111111111111111111111")
)

// Seed namespaces.
const (
	SeedProgramState = "program_state"
	SeedCollection   = "collection"
	SeedVault        = "vault"
	SeedAsset        = "asset"
	SeedAuthority    = "authority"
)

// MaxSeedLength is the longest single seed accepted.
const MaxSeedLength = solana.MaxSeedLength

// Deriver derives addresses owned by one program.
type Deriver struct {
	programID solana.PublicKey
}

// New returns a Deriver for programID.
func New(programID solana.PublicKey) Deriver {
	return Deriver{programID: programID}
}

// ProgramID returns the program the derived addresses belong to.
func (d Deriver) ProgramID() solana.PublicKey { return d.programID }

// Derive maps seeds to the program-derived address and its bump.
func (d Deriver) Derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: seed %d is %d bytes (max %d)", emblem.ErrInvalidSeeds, i, len(s), MaxSeedLength)
		}
	}
	addr, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %v", emblem.ErrInvalidSeeds, err)
	}
	return addr, bump, nil
}

func (d Deriver) derive(seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := d.Derive(seeds...)
	return addr, err
}

// ProgramState returns the address of the program state singleton.
func (d Deriver) ProgramState() (solana.PublicKey, error) {
	return d.derive([]byte(SeedProgramState))
}

// Authority returns the program authority: the fixed identity every
// collection delegates permanent freeze and burn power to.
func (d Deriver) Authority() (solana.PublicKey, error) {
	return d.derive([]byte(SeedAuthority))
}

// Collection returns the address of a collection type.
func (d Deriver) Collection(collectionType string) (solana.PublicKey, error) {
	return d.derive([]byte(SeedCollection), []byte(collectionType))
}

// Vault returns the address of the vault for externalTokenID inside a
// collection.
func (d Deriver) Vault(collection solana.PublicKey, externalTokenID string) (solana.PublicKey, error) {
	return d.derive([]byte(SeedVault), collection[:], []byte(externalTokenID))
}

// Asset returns the address of the asset backing a vault.
func (d Deriver) Asset(vault solana.PublicKey) (solana.PublicKey, error) {
	return d.derive([]byte(SeedAsset), vault[:])
}

// IsInvalidSeeds reports whether err came from an oversized seed.
func IsInvalidSeeds(err error) bool {
	return errors.Is(err, emblem.ErrInvalidSeeds)
}
