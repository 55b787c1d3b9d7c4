package data

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type JobStatus uint8

const (
	JobStatusOpen JobStatus = iota + 1
	JobStatusCompleted
	JobStatusFailed
)

// Job binds a resolver's collateral to one order. The slashing path is out of
// this service; only the open/completed/failed transitions are tracked.
type Job struct {
	ID        string
	OrderHash common.Hash
	Resolver  common.Address
	Stake     *big.Int
	Status    JobStatus
	CreatedAt time.Time
}

type Jobs interface {
	Insert(Job) error
	GetByOrder(orderHash common.Hash) (*Job, error)
	UpdateStatus(id string, status JobStatus) error
}
