package types

import "github.com/gagliardetto/solana-go"

// ProgramState is the vault program's singleton configuration.
// It lives at the address derived from ("program_state").
type ProgramState struct {
	BaseURI         string           `cramberry:"1"`
	Authority       solana.PublicKey `cramberry:"2"`
	SignerPublicKey solana.PublicKey `cramberry:"3"`
}

// Vault binds an external token identifier to an on-ledger asset.
// It lives at the address derived from
// ("vault", collection address, external token id).
type Vault struct {
	Owner           solana.PublicKey  `cramberry:"1"`
	ExternalTokenID string            `cramberry:"2"`
	IsMinted        bool              `cramberry:"3"`
	IsClaimed       bool              `cramberry:"4"`
	Claimer         *solana.PublicKey `cramberry:"5"`
	AssetReference  solana.PublicKey  `cramberry:"6"`
}

// VaultStatus is a vault's lifecycle state.
type VaultStatus uint8

const (
	VaultUninitialized VaultStatus = iota
	VaultMinted
	VaultClaimed
)

func (s VaultStatus) String() string {
	switch s {
	case VaultMinted:
		return "Minted"
	case VaultClaimed:
		return "Claimed"
	default:
		return "Uninitialized"
	}
}

// Status reports the lifecycle state recorded in v. A nil vault is
// Uninitialized.
func (v *Vault) Status() VaultStatus {
	switch {
	case v == nil || !v.IsMinted:
		return VaultUninitialized
	case v.IsClaimed:
		return VaultClaimed
	default:
		return VaultMinted
	}
}

// VaultKey names a vault in queries.
type VaultKey struct {
	CollectionType  string `cramberry:"1"`
	ExternalTokenID string `cramberry:"2"`
}

// Attribute is a descriptive key/value pair attached to an asset.
type Attribute struct {
	Key   string `cramberry:"1"`
	Value string `cramberry:"2"`
}

// PermanentFreezeDelegate lets Authority freeze or thaw every member
// asset of a collection regardless of ownership.
type PermanentFreezeDelegate struct {
	Authority solana.PublicKey `cramberry:"1"`
	Frozen    bool             `cramberry:"2"`
}

// PermanentBurnDelegate lets Authority burn every member asset of a
// collection regardless of ownership.
type PermanentBurnDelegate struct {
	Authority solana.PublicKey `cramberry:"1"`
}

// Collection is a shared asset-registry container.
type Collection struct {
	Name           string                   `cramberry:"1"`
	URI            string                   `cramberry:"2"`
	UpdateAuth     solana.PublicKey         `cramberry:"3"`
	FreezeDelegate *PermanentFreezeDelegate `cramberry:"4"`
	BurnDelegate   *PermanentBurnDelegate   `cramberry:"5"`
	NumMinted      uint64                   `cramberry:"6"`
	CurrentSize    uint64                   `cramberry:"7"`
}

// Asset is a displayable asset created under a collection.
type Asset struct {
	Owner      solana.PublicKey `cramberry:"1"`
	Collection solana.PublicKey `cramberry:"2"`
	Name       string           `cramberry:"3"`
	URI        string           `cramberry:"4"`
	Attributes []Attribute      `cramberry:"5"`
}

// AttributeValue returns the value of the attribute named key.
func (a *Asset) AttributeValue(key string) (string, bool) {
	for _, attr := range a.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
