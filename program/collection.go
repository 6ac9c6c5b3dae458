package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/registry"
	"github.com/blockberries/emblem/types"
)

// CollectionName is the display name of the collection for a type.
func CollectionName(collectionType string) string {
	return fmt.Sprintf("Emblem %s Vaults", collectionType)
}

// CollectionURI is the metadata location of the collection for a type.
func CollectionURI(baseURI, collectionType string) string {
	return baseURI + "collections/" + collectionType
}

func collectionSeeds(collectionType string) [][]byte {
	return [][]byte{[]byte(address.SeedCollection), []byte(collectionType)}
}

func (p *Program) createCollection(ctx *ledger.InvokeContext, args *types.CreateCollectionArgs) error {
	if args.CollectionType == "" {
		return fmt.Errorf("%w: empty collection type", emblem.ErrInvalidInstruction)
	}
	st, err := p.loadState(ctx)
	if err != nil {
		return err
	}
	coll, err := p.derive.Collection(args.CollectionType)
	if err != nil {
		return err
	}
	exists, err := ctx.Exists(coll)
	if err != nil {
		return err
	}
	if exists {
		ctx.Emit(types.NewEvent("collection_exists",
			"collection_type", args.CollectionType,
			"collection", coll.String(),
		))
		return nil
	}
	authority, err := p.authorityAddress()
	if err != nil {
		return err
	}
	err = p.registry.CreateCollection(ctx, registry.CreateCollection{
		Address:         coll,
		Name:            CollectionName(args.CollectionType),
		URI:             CollectionURI(st.BaseURI, args.CollectionType),
		UpdateAuthority: authority,
		FreezeDelegate:  &types.PermanentFreezeDelegate{Authority: authority, Frozen: true},
		BurnDelegate:    &types.PermanentBurnDelegate{Authority: authority},
	}, collectionSeeds(args.CollectionType))
	if err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("vault_collection_created",
		"collection_type", args.CollectionType,
		"collection", coll.String(),
	))
	return nil
}

// requireCollection returns the address of an existing collection.
func (p *Program) requireCollection(ctx *ledger.InvokeContext, collectionType string) (solana.PublicKey, error) {
	coll, err := p.derive.Collection(collectionType)
	if err != nil {
		return coll, err
	}
	exists, err := ctx.Exists(coll)
	if err != nil {
		return coll, err
	}
	if !exists {
		return coll, fmt.Errorf("%w: %q", emblem.ErrCollectionNotFound, collectionType)
	}
	return coll, nil
}
