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

// Reader answers read-only questions about vault state. It works over
// committed state as well as over an executing unit.
type Reader struct {
	r          ledger.Reader
	programID  solana.PublicKey
	registryID solana.PublicKey
	derive     address.Deriver
}

// NewReader returns a Reader for the program configured by cfg.
func NewReader(r ledger.Reader, cfg Config) Reader {
	return Reader{
		r:          r,
		programID:  cfg.ProgramID,
		registryID: cfg.RegistryProgramID,
		derive:     address.New(cfg.ProgramID),
	}
}

// ProgramState returns the program state singleton.
func (q Reader) ProgramState() (*types.ProgramState, error) {
	addr, err := q.derive.ProgramState()
	if err != nil {
		return nil, err
	}
	var st types.ProgramState
	ok, err := ledger.LoadRecord(q.r, addr, q.programID, StateRecord, &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, emblem.ErrNotInitialized
	}
	return &st, nil
}

// BaseURI returns the current base URI.
func (q Reader) BaseURI() (string, error) {
	st, err := q.ProgramState()
	if err != nil {
		return "", err
	}
	return st.BaseURI, nil
}

// VaultAddress derives the address of the vault for key.
func (q Reader) VaultAddress(key types.VaultKey) (solana.PublicKey, error) {
	if err := validateTokenID(key.ExternalTokenID); err != nil {
		return solana.PublicKey{}, err
	}
	coll, err := q.derive.Collection(key.CollectionType)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return q.derive.Vault(coll, key.ExternalTokenID)
}

// Vault returns the vault for key. A vault that was never minted is
// reported as ErrNotMinted.
func (q Reader) Vault(key types.VaultKey) (*types.Vault, error) {
	addr, err := q.VaultAddress(key)
	if err != nil {
		return nil, err
	}
	var v types.Vault
	ok, err := ledger.LoadRecord(q.r, addr, q.programID, VaultRecord, &v)
	if err != nil {
		return nil, err
	}
	if !ok || !v.IsMinted {
		return nil, fmt.Errorf("%w: %q in %q", emblem.ErrNotMinted, key.ExternalTokenID, key.CollectionType)
	}
	return &v, nil
}

// IsClaimed reports whether the vault for key has been claimed.
func (q Reader) IsClaimed(key types.VaultKey) (bool, error) {
	v, err := q.Vault(key)
	if err != nil {
		return false, err
	}
	return v.IsClaimed, nil
}

// VaultOwner returns the account that minted the vault for key.
func (q Reader) VaultOwner(key types.VaultKey) (solana.PublicKey, error) {
	v, err := q.Vault(key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return v.Owner, nil
}

// Claimer returns the account that claimed the vault for key, or nil.
func (q Reader) Claimer(key types.VaultKey) (*solana.PublicKey, error) {
	v, err := q.Vault(key)
	if err != nil {
		return nil, err
	}
	return claimerOf(v), nil
}

// Collection returns the registry collection for a type.
func (q Reader) Collection(collectionType string) (*types.Collection, solana.PublicKey, error) {
	addr, err := q.derive.Collection(collectionType)
	if err != nil {
		return nil, addr, err
	}
	c, ok, err := registry.GetCollection(q.r, q.registryID, addr)
	if err != nil {
		return nil, addr, err
	}
	if !ok {
		return nil, addr, fmt.Errorf("%w: %q", emblem.ErrCollectionNotFound, collectionType)
	}
	return c, addr, nil
}

// Asset returns the registry asset at addr.
func (q Reader) Asset(addr solana.PublicKey) (*types.Asset, error) {
	a, ok, err := registry.GetAsset(q.r, q.registryID, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", emblem.ErrAssetNotFound, addr)
	}
	return a, nil
}

// Answer encodings shared by query instructions and query paths: a
// claimed flag is one byte, a key is its 32 bytes, a missing claimer
// is empty, a base URI is its bytes.
func encodeBool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

// Answer runs a read-only query and returns its encoded answer.
func (q Reader) Answer(args types.QueryArgs) ([]byte, error) {
	switch args.Kind {
	case types.QueryIsClaimed:
		claimed, err := q.IsClaimed(args.Key)
		if err != nil {
			return nil, err
		}
		return encodeBool(claimed), nil
	case types.QueryVaultOwner:
		owner, err := q.VaultOwner(args.Key)
		if err != nil {
			return nil, err
		}
		return owner.Bytes(), nil
	case types.QueryClaimer:
		c, err := q.Claimer(args.Key)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return []byte{}, nil
		}
		return c.Bytes(), nil
	case types.QueryBaseURI:
		uri, err := q.BaseURI()
		if err != nil {
			return nil, err
		}
		return []byte(uri), nil
	default:
		return nil, fmt.Errorf("%w: query kind %d", emblem.ErrInvalidInstruction, args.Kind)
	}
}

func (p *Program) query(ctx *ledger.InvokeContext, args *types.QueryArgs) error {
	q := Reader{r: ctx, programID: p.id, registryID: p.registryID, derive: p.derive}
	out, err := q.Answer(*args)
	if err != nil {
		return err
	}
	ctx.SetReturnData(out)
	return nil
}
