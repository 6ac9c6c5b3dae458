package app

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/gagliardetto/solana-go"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/program"
	"github.com/blockberries/emblem/types"
)

// Query paths.
const (
	PathIsClaimed    = "/vault/is_claimed"
	PathVaultOwner   = "/vault/owner"
	PathClaimer      = "/vault/claimer"
	PathVault        = "/vault"
	PathVaultAddress = "/address/vault"
	PathBaseURI      = "/program/base_uri"
	PathProgramState = "/program/state"
	PathCollection   = "/collection"
	PathAsset        = "/asset"
	PathBalance      = "/balance"
)

// EncodeVaultKey builds the request data of the vault paths.
func EncodeVaultKey(collectionType, externalTokenID string) ([]byte, error) {
	return cramberry.Marshal(types.VaultKey{CollectionType: collectionType, ExternalTokenID: externalTokenID})
}

func (a *App) Query(_ context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	a.mu.RLock()
	height := a.height
	a.mu.RUnlock()

	value, info, err := a.answer(req)
	if err != nil {
		code := emblem.CodeOf(err)
		if code == emblem.CodeInternal {
			return types.StateQueryResult{}, fmt.Errorf("query %s: %w", req.Path, err)
		}
		return types.StateQueryResult{Code: code, Info: err.Error(), Height: height}, nil
	}
	return types.StateQueryResult{Key: req.Data, Value: value, Height: height, Info: info}, nil
}

func (a *App) answer(req types.StateQuery) ([]byte, string, error) {
	q := program.NewReader(a.store, a.program)
	switch string(req.Path) {
	case PathIsClaimed, PathVaultOwner, PathClaimer:
		key, err := decodeVaultKey(req.Data)
		if err != nil {
			return nil, "", err
		}
		kind := map[string]types.QueryKind{
			PathIsClaimed:  types.QueryIsClaimed,
			PathVaultOwner: types.QueryVaultOwner,
			PathClaimer:    types.QueryClaimer,
		}[string(req.Path)]
		v, err := q.Answer(types.QueryArgs{Kind: kind, Key: key})
		return v, "", err

	case PathVault:
		key, err := decodeVaultKey(req.Data)
		if err != nil {
			return nil, "", err
		}
		v, err := q.Vault(key)
		if err != nil {
			return nil, "", err
		}
		return marshal(*v, v.Status().String())

	case PathVaultAddress:
		key, err := decodeVaultKey(req.Data)
		if err != nil {
			return nil, "", err
		}
		addr, err := q.VaultAddress(key)
		if err != nil {
			return nil, "", err
		}
		return addr.Bytes(), addr.String(), nil

	case PathBaseURI:
		v, err := q.Answer(types.QueryArgs{Kind: types.QueryBaseURI})
		return v, "", err

	case PathProgramState:
		st, err := q.ProgramState()
		if err != nil {
			return nil, "", err
		}
		return marshal(*st, "")

	case PathCollection:
		c, addr, err := q.Collection(string(req.Data))
		if err != nil {
			return nil, "", err
		}
		return marshal(*c, addr.String())

	case PathAsset:
		addr, err := decodeAddress(req.Data)
		if err != nil {
			return nil, "", err
		}
		asset, err := q.Asset(addr)
		if err != nil {
			return nil, "", err
		}
		return marshal(*asset, "")

	case PathBalance:
		addr, err := decodeAddress(req.Data)
		if err != nil {
			return nil, "", err
		}
		acct, err := a.store.GetAccount(addr)
		if err != nil {
			return nil, "", err
		}
		var lamports uint64
		if acct != nil {
			lamports = acct.Lamports
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, lamports)
		return buf, program.FormatLamports(lamports), nil

	default:
		return nil, "", fmt.Errorf("%w: %s", emblem.ErrUnknownQuery, req.Path)
	}
}

func marshal(v any, info string) ([]byte, string, error) {
	b, err := cramberry.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return b, info, nil
}

func decodeVaultKey(data []byte) (types.VaultKey, error) {
	var key types.VaultKey
	if err := cramberry.Unmarshal(data, &key); err != nil {
		return key, fmt.Errorf("%w: vault key: %v", emblem.ErrInvalidQuery, err)
	}
	return key, nil
}

func decodeAddress(data []byte) (solana.PublicKey, error) {
	if len(data) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("%w: address must be %d bytes, got %d", emblem.ErrInvalidQuery, solana.PublicKeyLength, len(data))
	}
	return solana.PublicKeyFromBytes(data), nil
}
