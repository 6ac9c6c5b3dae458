package types

// GenesisDoc is the raw genesis document for chain initialization.
type GenesisDoc struct {
	ChainID         string          `cramberry:"1"`
	GenesisTime     Timestamp       `cramberry:"2"`
	InitialHeight   uint64          `cramberry:"3"`
	ConsensusParams ConsensusParams `cramberry:"4"`
	// Application genesis state, JSON-encoded GenesisState.
	AppState []byte `cramberry:"5"`
}

// GenesisState is the application part of the genesis document.
type GenesisState struct {
	// Initial lamport balances keyed by base58 address.
	Balances map[string]uint64 `json:"balances"`
}
