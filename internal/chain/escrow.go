package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DeployParams carries everything an escrow deployment needs on either chain.
type DeployParams struct {
	OrderHash     common.Hash
	HashLock      common.Hash
	Token         common.Address
	Amount        *big.Int
	SafetyDeposit *big.Int
	Maker         common.Address
	// Deadline is the order deadline as a unix timestamp; the contract derives
	// its cancellation time-lock from it.
	Deadline uint64
}

// Escrow models the escrow contract of one chain as typed operations with
// explicit success/failure contracts. Encoding details stay behind it.
type Escrow interface {
	DeploySrc(ctx context.Context, p DeployParams) (common.Hash, error)
	// DeployDst requires a proof of the source-side deployment; the verifying
	// contract rejects the call unless the proof was accepted beforehand.
	DeployDst(ctx context.Context, p DeployParams, proof Proof) (common.Hash, error)
	Withdraw(ctx context.Context, orderHash common.Hash, secret [32]byte) (common.Hash, error)
	Cancel(ctx context.Context, orderHash common.Hash) (common.Hash, error)
	SubmitProof(ctx context.Context, proof Proof) (common.Hash, error)
	ProofAccepted(ctx context.Context, orderHash common.Hash) (bool, error)
	Address() common.Address
}
