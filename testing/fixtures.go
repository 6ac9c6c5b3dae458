package emblemtest

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/emblem"
	"github.com/blockberries/emblem/program"
	"github.com/blockberries/emblem/types"
)

// FundedLamports is the genesis balance of every Chain account.
const FundedLamports uint64 = 1_000_000

// NewKey returns a fresh Ed25519 key.
func NewKey(t testing.TB) solana.PrivateKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k
}

// Chain is a Harness over a vault application that tracks heights and
// nonces, so tests read as a sequence of blocks.
type Chain struct {
	*Harness
	t      *testing.T
	Build  program.Builder
	Admin  solana.PrivateKey
	Signer solana.PrivateKey
	height uint64
	nonce  uint64
}

// NewChain performs a funded genesis handshake for the admin and every
// given account. Signer is the off-ledger approval key.
func NewChain(t *testing.T, app emblem.Lifecycle, cfg program.Config, accounts ...solana.PrivateKey) *Chain {
	t.Helper()
	c := &Chain{
		Harness: NewHarness(t, app),
		t:       t,
		Build:   program.Builder{ProgramID: cfg.ProgramID},
		Admin:   NewKey(t),
		Signer:  NewKey(t),
	}
	keys := []solana.PublicKey{c.Admin.PublicKey()}
	for _, a := range accounts {
		keys = append(keys, a.PublicKey())
	}
	c.GenesisFunded(FundedLamports, keys...)
	return c
}

// Height returns the last committed height.
func (c *Chain) Height() uint64 { return c.height }

// Now returns the Unix time of the next block.
func (c *Chain) Now() int64 { return BlockTime(c.height + 1).Unix() }

// Tx signs ixs with payer and encodes the transaction.
func (c *Chain) Tx(payer solana.PrivateKey, ixs ...types.Instruction) types.Tx {
	c.t.Helper()
	c.nonce++
	tx := types.NewTransaction(c.nonce, ixs...)
	require.NoError(c.t, tx.Sign(payer))
	raw, err := tx.Encode()
	require.NoError(c.t, err)
	return raw
}

// Next executes and commits the next block.
func (c *Chain) Next(txs ...types.Tx) types.BlockOutcome {
	c.t.Helper()
	outcome := c.Execute(txs...)
	c.Commit()
	return outcome
}

// Execute executes the next block and leaves it for Commit.
func (c *Chain) Execute(txs ...types.Tx) types.BlockOutcome {
	c.t.Helper()
	c.height++
	return c.ExecuteBlock(MakeBlock(c.height, txs...))
}

// MustSucceed executes ixs in their own block and requires success.
func (c *Chain) MustSucceed(payer solana.PrivateKey, ixs ...types.Instruction) types.TxOutcome {
	c.t.Helper()
	out := c.Next(c.Tx(payer, ixs...)).TxOutcomes[0]
	require.Truef(c.t, out.OK(), "code=%d info=%s", out.Code, out.Info)
	return out
}

// MustFail executes ixs in their own block and requires failure with
// want.
func (c *Chain) MustFail(want *emblem.Error, payer solana.PrivateKey, ixs ...types.Instruction) types.TxOutcome {
	c.t.Helper()
	out := c.Next(c.Tx(payer, ixs...)).TxOutcomes[0]
	require.Equalf(c.t, want.Code, out.Code, "info=%s", out.Info)
	return out
}

// Setup initializes the program with baseURI and creates a collection
// per type, all in one transaction paid by the admin.
func (c *Chain) Setup(baseURI string, collectionTypes ...string) {
	c.t.Helper()
	ix, err := c.Build.Initialize(baseURI, c.Signer.PublicKey())
	require.NoError(c.t, err)
	ixs := []types.Instruction{ix}
	for _, ct := range collectionTypes {
		ix, err := c.Build.CreateCollection(ct)
		require.NoError(c.t, err)
		ixs = append(ixs, ix)
	}
	c.MustSucceed(c.Admin, ixs...)
}

// Args returns vault arguments approved at the next block's time.
func (c *Chain) Args(collectionType, externalTokenID string, price uint64) types.VaultArgs {
	return types.VaultArgs{
		CollectionType:  collectionType,
		ExternalTokenID: externalTokenID,
		Price:           price,
		Timestamp:       c.Now(),
	}
}

// MintTx returns a signed mint of args approved by the chain signer.
func (c *Chain) MintTx(payer solana.PrivateKey, args types.VaultArgs) types.Tx {
	c.t.Helper()
	ixs, err := c.Build.ApprovedMint(c.Signer, args)
	require.NoError(c.t, err)
	return c.Tx(payer, ixs...)
}

// ClaimTx returns a signed claim of args approved by the chain signer.
func (c *Chain) ClaimTx(payer solana.PrivateKey, args types.VaultArgs) types.Tx {
	c.t.Helper()
	ixs, err := c.Build.ApprovedClaim(c.Signer, args)
	require.NoError(c.t, err)
	return c.Tx(payer, ixs...)
}
