package service

import (
	"math/big"

	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
)

// EventKind enumerates normalized events on the internal bus. Watchers strip
// all chain-specific encoding before publishing, so the dispatcher never sees
// raw logs.
type EventKind uint8

const (
	EventOrderCreated EventKind = iota + 1
	EventSrcEscrowDeployed
	EventDstEscrowDeployed
	EventSecretRevealed
	EventEscrowCancelled
)

var eventKindNames = map[EventKind]string{
	EventOrderCreated:      "order_created",
	EventSrcEscrowDeployed: "src_escrow_deployed",
	EventDstEscrowDeployed: "dst_escrow_deployed",
	EventSecretRevealed:    "secret_revealed",
	EventEscrowCancelled:   "escrow_cancelled",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

type ChainEvent struct {
	Kind          EventKind
	Chain         string
	OrderHash     common.Hash
	HashLock      common.Hash
	Escrow        common.Address
	Secret        common.Hash
	Amount        *big.Int
	SafetyDeposit *big.Int
	BlockNumber   uint64
}

// legs maps an order's direction onto the two configured networks: the first
// return value is the swap source chain, the second the destination.
func legs(o *data.Order, a, b config.Network) (config.Network, config.Network) {
	if o.Direction == data.DirectionBtoA {
		return b, a
	}
	return a, b
}
