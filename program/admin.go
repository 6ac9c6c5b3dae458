package program

import (
	"fmt"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/ledger"
	"github.com/blockberries/emblem/types"
)

func (p *Program) initialize(ctx *ledger.InvokeContext, args *types.InitializeArgs) error {
	addr, err := p.stateAddress()
	if err != nil {
		return err
	}
	exists, err := ctx.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return emblem.ErrAlreadyInitialized
	}
	if err := validateBaseURI(args.BaseURI); err != nil {
		return err
	}
	if args.SignerPublicKey.IsZero() {
		return fmt.Errorf("%w: zero signer key", emblem.ErrInvalidSigner)
	}
	st := types.ProgramState{
		BaseURI:         args.BaseURI,
		Authority:       ctx.Caller(),
		SignerPublicKey: args.SignerPublicKey,
	}
	if err := ctx.WriteRecord(addr, StateRecord, st); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("program_initialized",
		"authority", st.Authority.String(),
		"signer", st.SignerPublicKey.String(),
		"base_uri", st.BaseURI,
	))
	return nil
}

func (p *Program) authorize(ctx *ledger.InvokeContext) (*types.ProgramState, error) {
	st, err := p.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if !ctx.Caller().Equals(st.Authority) {
		return nil, fmt.Errorf("%w: %s is not the authority", emblem.ErrUnauthorized, ctx.Caller())
	}
	return st, nil
}

func (p *Program) saveState(ctx *ledger.InvokeContext, st *types.ProgramState) error {
	addr, err := p.stateAddress()
	if err != nil {
		return err
	}
	return ctx.WriteRecord(addr, StateRecord, *st)
}

func (p *Program) setBaseURI(ctx *ledger.InvokeContext, args *types.SetBaseURIArgs) error {
	st, err := p.authorize(ctx)
	if err != nil {
		return err
	}
	if err := validateBaseURI(args.BaseURI); err != nil {
		return err
	}
	st.BaseURI = args.BaseURI
	if err := p.saveState(ctx, st); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("base_uri_updated", "base_uri", st.BaseURI))
	return nil
}

func (p *Program) updateSigner(ctx *ledger.InvokeContext, args *types.UpdateSignerArgs) error {
	st, err := p.authorize(ctx)
	if err != nil {
		return err
	}
	if args.SignerPublicKey.IsZero() {
		return fmt.Errorf("%w: zero signer key", emblem.ErrInvalidSigner)
	}
	st.SignerPublicKey = args.SignerPublicKey
	if err := p.saveState(ctx, st); err != nil {
		return err
	}
	ctx.Emit(types.NewEvent("signer_updated", "signer", st.SignerPublicKey.String()))
	return nil
}
