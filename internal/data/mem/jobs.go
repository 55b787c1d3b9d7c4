package mem

import (
	"sync"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type jobs struct {
	mu   sync.Mutex
	rows map[string]data.Job
}

func NewJobs() data.Jobs {
	return &jobs{rows: make(map[string]data.Job)}
}

func (q *jobs) Insert(j data.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.rows[j.ID]; ok {
		return errors.Errorf("job %s already exists", j.ID)
	}
	q.rows[j.ID] = j
	return nil
}

func (q *jobs) GetByOrder(orderHash common.Hash) (*data.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, j := range q.rows {
		if j.OrderHash == orderHash {
			job := j
			return &job, nil
		}
	}
	return nil, nil
}

func (q *jobs) UpdateStatus(id string, status data.JobStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.rows[id]
	if !ok {
		return errors.Errorf("job %s not found", id)
	}
	j.Status = status
	q.rows[id] = j
	return nil
}
