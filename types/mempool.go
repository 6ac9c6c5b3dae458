package types

// MempoolContext says why CheckTx is called.
type MempoolContext uint8

const (
	// MempoolFirstSeen is a transaction arriving at the node.
	MempoolFirstSeen MempoolContext = 1
	// MempoolRevalidation is a pending transaction re-checked after a
	// commit. It fails once its nonce has been consumed.
	MempoolRevalidation MempoolContext = 2
)

// GateVerdict admits or rejects a transaction for the mempool.
type GateVerdict struct {
	// Zero admits. Otherwise an error code from the same table as
	// TxOutcome.Code.
	Code uint32 `cramberry:"1"`
	// Human-readable reason. Not part of consensus.
	Info string `cramberry:"2"`
	// Priority orders admitted transactions, highest first.
	Priority int64 `cramberry:"3"`
	// Sender is the base58 fee payer. Together with Nonce it lets the
	// engine order one payer's transactions.
	Sender string `cramberry:"4"`
	// Nonce is the transaction nonce the payer will consume.
	Nonce uint64 `cramberry:"5"`
}

// Accepted reports whether the transaction was admitted.
func (v GateVerdict) Accepted() bool { return v.Code == 0 }
