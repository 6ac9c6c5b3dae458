package types

// HandshakeRequest opens every session between the consensus engine
// and the vault application.
type HandshakeRequest struct {
	// Block the engine last finalized. A nil value starts from Genesis.
	LastCommitted *BlockID `cramberry:"1"`
	// Chain configuration and initial balances, sent with a nil
	// LastCommitted only.
	Genesis *GenesisDoc `cramberry:"2"`
}

// HandshakeResponse reports where the vault ledger resumes.
type HandshakeResponse struct {
	// Height and hash of the application's last commit. Nil before
	// the first block.
	LastBlock *BlockID `cramberry:"1"`
	// Hash chained over every committed account diff. The engine
	// compares it with its own record of the block.
	AppHash *AppHash `cramberry:"2"`
	// Capabilities declares optional services such as simulation.
	Capabilities Capabilities `cramberry:"3"`
}
