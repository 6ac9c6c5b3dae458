package program

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem/attest"
	"github.com/blockberries/emblem/types"
)

// Builder assembles vault instructions for one deployment.
type Builder struct {
	ProgramID solana.PublicKey
}

func (b Builder) build(ix types.VaultInstruction) (types.Instruction, error) {
	data, err := cramberry.Marshal(ix)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("marshal vault instruction: %w", err)
	}
	return types.Instruction{ProgramID: b.ProgramID, Data: data}, nil
}

// Initialize creates program state with the caller as authority.
func (b Builder) Initialize(baseURI string, signer solana.PublicKey) (types.Instruction, error) {
	return b.build(types.VaultInstruction{Initialize: &types.InitializeArgs{BaseURI: baseURI, SignerPublicKey: signer}})
}

// SetBaseURI replaces the base URI.
func (b Builder) SetBaseURI(baseURI string) (types.Instruction, error) {
	return b.build(types.VaultInstruction{SetBaseURI: &types.SetBaseURIArgs{BaseURI: baseURI}})
}

// UpdateSigner replaces the approval signer.
func (b Builder) UpdateSigner(signer solana.PublicKey) (types.Instruction, error) {
	return b.build(types.VaultInstruction{UpdateSignerPublicKey: &types.UpdateSignerArgs{SignerPublicKey: signer}})
}

// CreateCollection creates the collection for a vault type.
func (b Builder) CreateCollection(collectionType string) (types.Instruction, error) {
	return b.build(types.VaultInstruction{CreateCollection: &types.CreateCollectionArgs{CollectionType: collectionType}})
}

// Mint issues a vault. It must follow an approval directive.
func (b Builder) Mint(args types.VaultArgs) (types.Instruction, error) {
	return b.build(types.VaultInstruction{Mint: &args})
}

// Claim redeems a vault. It must follow an approval directive.
func (b Builder) Claim(args types.VaultArgs) (types.Instruction, error) {
	return b.build(types.VaultInstruction{Claim: &args})
}

// Query asks a read-only question answered through return data.
func (b Builder) Query(kind types.QueryKind, key types.VaultKey) (types.Instruction, error) {
	return b.build(types.VaultInstruction{Query: &types.QueryArgs{Kind: kind, Key: key}})
}

// ApprovedMint returns the approval directive signed by signer followed
// by the mint instruction.
func (b Builder) ApprovedMint(signer solana.PrivateKey, args types.VaultArgs) ([]types.Instruction, error) {
	return b.approved(signer, args, b.Mint)
}

// ApprovedClaim returns the approval directive signed by signer followed
// by the claim instruction.
func (b Builder) ApprovedClaim(signer solana.PrivateKey, args types.VaultArgs) ([]types.Instruction, error) {
	return b.approved(signer, args, b.Claim)
}

func (b Builder) approved(signer solana.PrivateKey, args types.VaultArgs, op func(types.VaultArgs) (types.Instruction, error)) ([]types.Instruction, error) {
	approval, err := attest.Approve(signer, args.ExternalTokenID, args.Price, args.Timestamp)
	if err != nil {
		return nil, err
	}
	ix, err := op(args)
	if err != nil {
		return nil, err
	}
	return []types.Instruction{approval, ix}, nil
}
