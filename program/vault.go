package program

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/address"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/registry"
	"github.com/blockberries/emblem/types"
)

// AssetName is the display name of the asset backing a vault.
func AssetName(externalTokenID string) string {
	return "Emblem Vault " + externalTokenID
}

func (p *Program) mint(ctx *ledger.InvokeContext, args *types.VaultArgs) error {
	st, err := p.loadState(ctx)
	if err != nil {
		return err
	}
	if err := p.verifier.Verify(ctx, st.SignerPublicKey, args.ExternalTokenID, args.Price, args.Timestamp); err != nil {
		return err
	}
	if err := validateTokenID(args.ExternalTokenID); err != nil {
		return err
	}
	coll, err := p.requireCollection(ctx, args.CollectionType)
	if err != nil {
		return err
	}
	vaultAddr, err := p.derive.Vault(coll, args.ExternalTokenID)
	if err != nil {
		return err
	}
	exists, err := ctx.Exists(vaultAddr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q in %q", emblem.ErrVaultAlreadyExists, args.ExternalTokenID, args.CollectionType)
	}

	payer := ctx.Caller()
	if err := collectFee(ctx, payer, st.Authority, args.Price); err != nil {
		return err
	}

	assetAddr, err := p.derive.Asset(vaultAddr)
	if err != nil {
		return err
	}
	asset, err := p.registry.CreateAsset(ctx, registry.CreateAsset{
		Address:    assetAddr,
		Collection: coll,
		Owner:      payer,
		Name:       AssetName(args.ExternalTokenID),
		URI:        st.BaseURI + args.ExternalTokenID,
		Attributes: []types.Attribute{
			{Key: "is_minted", Value: "true"},
			{Key: "is_claimed", Value: "false"},
			{Key: "external_token_id", Value: args.ExternalTokenID},
		},
	}, [][]byte{[]byte(address.SeedAsset), vaultAddr[:]}, authoritySeeds)
	if err != nil {
		return err
	}

	v := types.Vault{
		Owner:           payer,
		ExternalTokenID: args.ExternalTokenID,
		IsMinted:        true,
		AssetReference:  asset,
	}
	if err := ctx.WriteRecord(vaultAddr, VaultRecord, v); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("vault_minted",
		"collection_type", args.CollectionType,
		"external_token_id", args.ExternalTokenID,
		"vault", vaultAddr.String(),
		"asset", asset.String(),
		"owner", payer.String(),
		"price", strconv.FormatUint(args.Price, 10),
		"price_display", FormatLamports(args.Price),
	))
	return nil
}

func (p *Program) claim(ctx *ledger.InvokeContext, args *types.VaultArgs) error {
	st, err := p.loadState(ctx)
	if err != nil {
		return err
	}
	if err := p.verifier.Verify(ctx, st.SignerPublicKey, args.ExternalTokenID, args.Price, args.Timestamp); err != nil {
		return err
	}
	if err := validateTokenID(args.ExternalTokenID); err != nil {
		return err
	}
	coll, err := p.derive.Collection(args.CollectionType)
	if err != nil {
		return err
	}
	vaultAddr, err := p.derive.Vault(coll, args.ExternalTokenID)
	if err != nil {
		return err
	}
	var v types.Vault
	ok, err := ctx.LoadRecord(vaultAddr, VaultRecord, &v)
	if err != nil {
		return err
	}
	switch {
	case !ok || !v.IsMinted:
		return fmt.Errorf("%w: %q in %q", emblem.ErrNotMinted, args.ExternalTokenID, args.CollectionType)
	case v.IsClaimed:
		return fmt.Errorf("%w: %q in %q", emblem.ErrAlreadyClaimed, args.ExternalTokenID, args.CollectionType)
	case v.ExternalTokenID != args.ExternalTokenID:
		return fmt.Errorf("%w: vault holds %q", emblem.ErrInvalidExternalTokenID, v.ExternalTokenID)
	}

	claimer := ctx.Caller()
	if err := collectFee(ctx, claimer, st.Authority, args.Price); err != nil {
		return err
	}
	err = p.registry.Burn(ctx, registry.Burn{Address: v.AssetReference, Collection: coll}, authoritySeeds)
	if err != nil {
		return err
	}

	v.IsClaimed = true
	v.Claimer = &claimer
	if err := ctx.WriteRecord(vaultAddr, VaultRecord, v); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("vault_claimed",
		"collection_type", args.CollectionType,
		"external_token_id", args.ExternalTokenID,
		"vault", vaultAddr.String(),
		"asset", v.AssetReference.String(),
		"claimer", claimer.String(),
		"price", strconv.FormatUint(args.Price, 10),
		"price_display", FormatLamports(args.Price),
	))
	return nil
}

// claimerOf is a nil-safe accessor used by queries.
func claimerOf(v *types.Vault) *solana.PublicKey {
	if v == nil {
		return nil
	}
	return v.Claimer
}
