// Package registry is the asset registry program: collections of
// displayable assets with permanent freeze and burn delegates.
//
// Other programs reach it through Client, which issues nested
// invocations from inside their own instruction.
package registry

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/types"
)

// Record names used for account discriminators.
const (
	CollectionRecord = "Collection"
	AssetRecord      = "Asset"
)

// Instruction is the registry's instruction data. Exactly one field is
// set.
type Instruction struct {
	CreateCollection *CreateCollection `cramberry:"1"`
	CreateAsset      *CreateAsset      `cramberry:"2"`
	Burn             *Burn             `cramberry:"3"`
}

// CreateCollection populates Address with a new collection. Address
// must sign.
type CreateCollection struct {
	Address         solana.PublicKey               `cramberry:"1"`
	Name            string                         `cramberry:"2"`
	URI             string                         `cramberry:"3"`
	UpdateAuthority solana.PublicKey               `cramberry:"4"`
	FreezeDelegate  *types.PermanentFreezeDelegate `cramberry:"5"`
	BurnDelegate    *types.PermanentBurnDelegate   `cramberry:"6"`
}

// CreateAsset populates Address with a new asset in Collection. Both
// Address and the collection's update authority must sign.
type CreateAsset struct {
	Address    solana.PublicKey  `cramberry:"1"`
	Collection solana.PublicKey  `cramberry:"2"`
	Owner      solana.PublicKey  `cramberry:"3"`
	Name       string            `cramberry:"4"`
	URI        string            `cramberry:"5"`
	Attributes []types.Attribute `cramberry:"6"`
}

// Burn destroys an asset. The owner of an unfrozen asset or the
// collection's permanent burn delegate must sign.
type Burn struct {
	Address    solana.PublicKey `cramberry:"1"`
	Collection solana.PublicKey `cramberry:"2"`
}

// Program implements ledger.Program.
type Program struct {
	id solana.PublicKey
}

var _ ledger.Program = (*Program)(nil)

// New returns the registry program deployed at id.
func New(id solana.PublicKey) *Program {
	return &Program{id: id}
}

// ID implements ledger.Program.
func (p *Program) ID() solana.PublicKey { return p.id }

// Execute implements ledger.Program.
func (p *Program) Execute(ctx *ledger.InvokeContext, data []byte) error {
	var ix Instruction
	if err := cramberry.Unmarshal(data, &ix); err != nil {
		return fmt.Errorf("%w: %v", emblem.ErrInvalidInstruction, err)
	}
	switch {
	case ix.CreateCollection != nil && ix.CreateAsset == nil && ix.Burn == nil:
		return p.createCollection(ctx, ix.CreateCollection)
	case ix.CreateAsset != nil && ix.CreateCollection == nil && ix.Burn == nil:
		return p.createAsset(ctx, ix.CreateAsset)
	case ix.Burn != nil && ix.CreateCollection == nil && ix.CreateAsset == nil:
		return p.burn(ctx, ix.Burn)
	default:
		return fmt.Errorf("%w: expected exactly one registry operation", emblem.ErrInvalidInstruction)
	}
}

func (p *Program) createCollection(ctx *ledger.InvokeContext, req *CreateCollection) error {
	if !ctx.IsSigner(req.Address) {
		return fmt.Errorf("%w: collection address %s", emblem.ErrMissingSignature, req.Address)
	}
	if err := p.requireEmpty(ctx, req.Address); err != nil {
		return err
	}
	coll := types.Collection{
		Name:           req.Name,
		URI:            req.URI,
		UpdateAuth:     req.UpdateAuthority,
		FreezeDelegate: req.FreezeDelegate,
		BurnDelegate:   req.BurnDelegate,
	}
	if err := ctx.WriteRecord(req.Address, CollectionRecord, coll); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("collection_created",
		"collection", req.Address.String(),
		"name", req.Name,
		"update_authority", req.UpdateAuthority.String(),
	))
	return nil
}

func (p *Program) createAsset(ctx *ledger.InvokeContext, req *CreateAsset) error {
	if !ctx.IsSigner(req.Address) {
		return fmt.Errorf("%w: asset address %s", emblem.ErrMissingSignature, req.Address)
	}
	var coll types.Collection
	ok, err := ctx.LoadRecord(req.Collection, CollectionRecord, &coll)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", emblem.ErrCollectionNotFound, req.Collection)
	}
	if !ctx.IsSigner(coll.UpdateAuth) {
		return fmt.Errorf("%w: %s", emblem.ErrNotUpdateAuthority, coll.UpdateAuth)
	}
	if err := p.requireEmpty(ctx, req.Address); err != nil {
		return err
	}
	asset := types.Asset{
		Owner:      req.Owner,
		Collection: req.Collection,
		Name:       req.Name,
		URI:        req.URI,
		Attributes: req.Attributes,
	}
	if err := ctx.WriteRecord(req.Address, AssetRecord, asset); err != nil {
		return err
	}
	coll.NumMinted++
	coll.CurrentSize++
	if err := ctx.WriteRecord(req.Collection, CollectionRecord, coll); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("asset_created",
		"asset", req.Address.String(),
		"collection", req.Collection.String(),
		"owner", req.Owner.String(),
		"name", req.Name,
	))
	return nil
}

func (p *Program) burn(ctx *ledger.InvokeContext, req *Burn) error {
	var asset types.Asset
	ok, err := ctx.LoadRecord(req.Address, AssetRecord, &asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", emblem.ErrAssetNotFound, req.Address)
	}
	if !asset.Collection.Equals(req.Collection) {
		return fmt.Errorf("%w: %s is in %s", emblem.ErrCollectionMismatch, req.Address, asset.Collection)
	}
	var coll types.Collection
	ok, err = ctx.LoadRecord(req.Collection, CollectionRecord, &coll)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", emblem.ErrCollectionNotFound, req.Collection)
	}
	if err := authorizeBurn(ctx, &asset, &coll); err != nil {
		return err
	}
	if err := ctx.Close(req.Address); err != nil {
		return err
	}
	if coll.CurrentSize > 0 {
		coll.CurrentSize--
	}
	if err := ctx.WriteRecord(req.Collection, CollectionRecord, coll); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("asset_burned",
		"asset", req.Address.String(),
		"collection", req.Collection.String(),
	))
	return nil
}

// authorizeBurn lets the permanent burn delegate burn any member asset.
// The owner may burn only while the collection is not frozen.
func authorizeBurn(ctx *ledger.InvokeContext, asset *types.Asset, coll *types.Collection) error {
	if coll.BurnDelegate != nil && ctx.IsSigner(coll.BurnDelegate.Authority) {
		return nil
	}
	if !ctx.IsSigner(asset.Owner) {
		return emblem.ErrNotDelegate
	}
	if coll.FreezeDelegate != nil && coll.FreezeDelegate.Frozen {
		return emblem.ErrAssetFrozen
	}
	return nil
}

func (p *Program) requireEmpty(ctx *ledger.InvokeContext, addr solana.PublicKey) error {
	exists, err := ctx.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", emblem.ErrAssetExists, addr)
	}
	return nil
}
