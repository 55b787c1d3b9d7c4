package mem

import (
	"sync"

	"github.com/Swapica/relayer-svc/internal/data"
)

type blocks struct {
	mu   sync.Mutex
	rows map[string]uint64
}

func NewLastBlocks() data.LastBlocks {
	return &blocks{rows: make(map[string]uint64)}
}

func (q *blocks) Set(chain string, n uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows[chain] = n
	return nil
}

func (q *blocks) Get(chain string) (*uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, ok := q.rows[chain]
	if !ok {
		return nil, nil
	}
	return &n, nil
}
