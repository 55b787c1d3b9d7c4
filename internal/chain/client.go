package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Receipt is the chain-agnostic result of an included transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Success     bool
	Logs        []types.Log
}

// Client is the narrow port to a single chain. The relayer core depends on
// nothing chain-specific beyond opaque payloads and log structures.
type Client interface {
	// SubmitTransaction signs and broadcasts a call to the given contract.
	SubmitTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	// AwaitConfirmation blocks until the transaction is included and buried
	// under depth blocks, or the context expires.
	AwaitConfirmation(ctx context.Context, tx common.Hash, depth uint64) (*Receipt, error)
	SubscribeLogs(ctx context.Context, q ethereum.FilterQuery, sink chan<- types.Log) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}
