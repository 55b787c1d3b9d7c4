// Package mem holds in-memory data implementations backing component tests
// and local runs without a database.
package mem

import (
	"sync"
	"time"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type orders struct {
	mu   sync.Mutex
	rows map[common.Hash]data.Order
}

func NewOrders() data.Orders {
	return &orders{rows: make(map[common.Hash]data.Order)}
}

func (q *orders) Insert(o data.Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.rows[o.OrderHash]; ok {
		return errors.Errorf("order %s already exists", o.OrderHash.Hex())
	}
	q.rows[o.OrderHash] = o
	return nil
}

func (q *orders) Get(orderHash common.Hash) (*data.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[orderHash]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (q *orders) Select(filter data.OrderFilter) ([]data.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []data.Order
	for _, o := range q.rows {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		if filter.DeadlineBefore != nil && !o.Deadline.Before(*filter.DeadlineBefore) {
			continue
		}
		if filter.Maker != nil && o.Maker != *filter.Maker {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (q *orders) UpdateStatus(orderHash common.Hash, from, to data.Status) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[orderHash]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	q.rows[orderHash] = o
	return true, nil
}

func (q *orders) SetSecret(orderHash common.Hash, secret common.Hash) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[orderHash]
	if !ok {
		return errors.Errorf("order %s not found", orderHash.Hex())
	}
	o.Secret = &secret
	q.rows[orderHash] = o
	return nil
}

func (q *orders) SetExecutedAt(orderHash common.Hash, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	o, ok := q.rows[orderHash]
	if !ok {
		return errors.Errorf("order %s not found", orderHash.Hex())
	}
	o.ExecutedAt = &at
	q.rows[orderHash] = o
	return nil
}

func containsStatus(list []data.Status, s data.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
