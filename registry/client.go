package registry

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/types"
)

// Client invokes the registry from another program. signerSeeds are
// derived under the calling program and sign for it.
type Client struct {
	ProgramID solana.PublicKey
}

// CreateCollection creates a collection.
func (c Client) CreateCollection(ctx *ledger.InvokeContext, req CreateCollection, signerSeeds ...[][]byte) error {
	return c.invoke(ctx, Instruction{CreateCollection: &req}, signerSeeds)
}

// CreateAsset creates an asset and returns its address.
func (c Client) CreateAsset(ctx *ledger.InvokeContext, req CreateAsset, signerSeeds ...[][]byte) (solana.PublicKey, error) {
	if err := c.invoke(ctx, Instruction{CreateAsset: &req}, signerSeeds); err != nil {
		return solana.PublicKey{}, err
	}
	return req.Address, nil
}

// Burn destroys an asset.
func (c Client) Burn(ctx *ledger.InvokeContext, req Burn, signerSeeds ...[][]byte) error {
	return c.invoke(ctx, Instruction{Burn: &req}, signerSeeds)
}

func (c Client) invoke(ctx *ledger.InvokeContext, ix Instruction, signerSeeds [][][]byte) error {
	data, err := cramberry.Marshal(ix)
	if err != nil {
		return fmt.Errorf("marshal registry instruction: %w", err)
	}
	return ctx.InvokeSigned(c.ProgramID, data, signerSeeds...)
}

// GetCollection reads the collection at addr.
func GetCollection(r ledger.Reader, programID, addr solana.PublicKey) (*types.Collection, bool, error) {
	var c types.Collection
	ok, err := ledger.LoadRecord(r, addr, programID, CollectionRecord, &c)
	if err != nil || !ok {
		return nil, false, err
	}
	return &c, true, nil
}

// GetAsset reads the asset at addr.
func GetAsset(r ledger.Reader, programID, addr solana.PublicKey) (*types.Asset, bool, error) {
	var a types.Asset
	ok, err := ledger.LoadRecord(r, addr, programID, AssetRecord, &a)
	if err != nil || !ok {
		return nil, false, err
	}
	return &a, true, nil
}
