package data

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EscrowSide uint8

const (
	EscrowSideSrc EscrowSide = iota + 1
	EscrowSideDst
)

func (s EscrowSide) String() string {
	switch s {
	case EscrowSideSrc:
		return "src"
	case EscrowSideDst:
		return "dst"
	}
	return "unknown"
}

type Escrow struct {
	OrderHash            common.Hash
	Side                 EscrowSide
	Chain                string
	Contract             common.Address
	LockedAmount         *big.Int
	SafetyDeposit        *big.Int
	DeployedAtBlock      uint64
	WithdrawalStart      time.Time
	CancellationDeadline time.Time
}

type Escrows interface {
	Insert(Escrow) error
	Get(orderHash common.Hash, side EscrowSide) (*Escrow, error)
	SelectByOrder(orderHash common.Hash) ([]Escrow, error)
}
