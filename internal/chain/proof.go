package chain

import "github.com/ethereum/go-ethereum/common"

// Proof attests that an escrow deployment is part of finalized state on its
// origin chain. It is a read of already-final data, so resubmission is safe.
type Proof struct {
	OrderHash   common.Hash
	HashLock    common.Hash
	ChainID     uint64
	Escrow      common.Address
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}
