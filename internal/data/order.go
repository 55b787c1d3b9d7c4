package data

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the order lifecycle state. Transitions are strictly forward;
// cancelled and expired are reachable from any pre-revealing state, stuck
// only from revealing.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusSrcLocked
	StatusDstLocked
	StatusRevealing
	StatusExecuted
	StatusCancelled
	StatusExpired
	StatusStuck
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusSrcLocked: "src_locked",
	StatusDstLocked: "dst_locked",
	StatusRevealing: "revealing",
	StatusExecuted:  "executed",
	StatusCancelled: "cancelled",
	StatusExpired:   "expired",
	StatusStuck:     "stuck",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition may leave the state.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusCancelled, StatusExpired, StatusStuck:
		return true
	}
	return false
}

// Direction identifies which chain is the swap source.
type Direction uint8

const (
	DirectionAtoB Direction = iota + 1
	DirectionBtoA
)

func (d Direction) Valid() bool {
	return d == DirectionAtoB || d == DirectionBtoA
}

type Order struct {
	OrderHash common.Hash
	Direction Direction
	Maker     common.Address
	SrcAsset  common.Address
	DstAsset  common.Address
	SrcAmount *big.Int
	DstAmount *big.Int
	Deadline  time.Time
	Nonce     uint64
	HashLock  common.Hash
	// Secret stays nil until the reveal phase; persisting it earlier breaks
	// the secrecy window.
	Secret     *common.Hash
	Status     Status
	CreatedAt  time.Time
	ExecutedAt *time.Time
}

type OrderFilter struct {
	Statuses       []Status
	DeadlineBefore *time.Time
	Maker          *common.Address
}

type Orders interface {
	Insert(Order) error
	// Get returns nil without an error when the order is unknown.
	Get(orderHash common.Hash) (*Order, error)
	Select(OrderFilter) ([]Order, error)
	// UpdateStatus atomically moves the order from `from` to `to` and reports
	// whether the swap happened; false means the order left `from` already.
	UpdateStatus(orderHash common.Hash, from, to Status) (bool, error)
	SetSecret(orderHash common.Hash, secret common.Hash) error
	SetExecutedAt(orderHash common.Hash, at time.Time) error
}
