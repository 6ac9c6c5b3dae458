package types

import "github.com/gagliardetto/solana-go"

// VaultInstruction is the instruction data of the vault program: a
// tagged union where exactly one field is set.
type VaultInstruction struct {
	Initialize            *InitializeArgs       `cramberry:"1"`
	CreateCollection      *CreateCollectionArgs `cramberry:"2"`
	Mint                  *VaultArgs            `cramberry:"3"`
	Claim                 *VaultArgs            `cramberry:"4"`
	SetBaseURI            *SetBaseURIArgs       `cramberry:"5"`
	UpdateSignerPublicKey *UpdateSignerArgs     `cramberry:"6"`
	Query                 *QueryArgs            `cramberry:"7"`
}

// InitializeArgs creates the program state singleton.
type InitializeArgs struct {
	BaseURI         string           `cramberry:"1"`
	SignerPublicKey solana.PublicKey `cramberry:"2"`
}

// CreateCollectionArgs creates the collection for one vault type.
type CreateCollectionArgs struct {
	CollectionType string `cramberry:"1"`
}

// VaultArgs carries the approved tuple of a mint or claim. Timestamp
// is the off-ledger signer's Unix time in seconds.
type VaultArgs struct {
	CollectionType  string `cramberry:"1"`
	ExternalTokenID string `cramberry:"2"`
	Price           uint64 `cramberry:"3"`
	Timestamp       int64  `cramberry:"4"`
}

// SetBaseURIArgs replaces the base URI.
type SetBaseURIArgs struct {
	BaseURI string `cramberry:"1"`
}

// UpdateSignerArgs replaces the registered approval signer.
type UpdateSignerArgs struct {
	SignerPublicKey solana.PublicKey `cramberry:"1"`
}

// QueryKind selects a read-only vault instruction.
type QueryKind uint8

const (
	QueryIsClaimed  QueryKind = 1
	QueryVaultOwner QueryKind = 2
	QueryClaimer    QueryKind = 3
	QueryBaseURI    QueryKind = 4
)

// QueryArgs is a read-only instruction. Its answer is returned as the
// transaction's return data; Key is ignored for QueryBaseURI.
type QueryArgs struct {
	Kind QueryKind `cramberry:"1"`
	Key  VaultKey  `cramberry:"2"`
}

// ApprovalMessage is the canonical message an off-ledger signer signs
// when approvals are bound to their parameters.
type ApprovalMessage struct {
	ExternalTokenID string `cramberry:"1"`
	Price           uint64 `cramberry:"2"`
	Timestamp       int64  `cramberry:"3"`
}
