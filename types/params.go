package types

// ConsensusParams contains the limits the engine enforces and the
// application mirrors in CheckTx.
type ConsensusParams struct {
	MaxBlockBytes uint64 `cramberry:"1"`
	MaxTxBytes    uint64 `cramberry:"2"`
}
