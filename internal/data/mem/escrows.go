package mem

import (
	"sync"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type escrowKey struct {
	orderHash common.Hash
	side      data.EscrowSide
}

type escrows struct {
	mu   sync.Mutex
	rows map[escrowKey]data.Escrow
}

func NewEscrows() data.Escrows {
	return &escrows{rows: make(map[escrowKey]data.Escrow)}
}

func (q *escrows) Insert(e data.Escrow) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := escrowKey{orderHash: e.OrderHash, side: e.Side}
	if _, ok := q.rows[key]; ok {
		return errors.Errorf("escrow %s/%s already exists", e.OrderHash.Hex(), e.Side)
	}
	q.rows[key] = e
	return nil
}

func (q *escrows) Get(orderHash common.Hash, side data.EscrowSide) (*data.Escrow, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.rows[escrowKey{orderHash: orderHash, side: side}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (q *escrows) SelectByOrder(orderHash common.Hash) ([]data.Escrow, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []data.Escrow
	for key, e := range q.rows {
		if key.orderHash == orderHash {
			result = append(result, e)
		}
	}
	return result, nil
}
