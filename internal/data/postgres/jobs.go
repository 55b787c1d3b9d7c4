package postgres

import (
	"database/sql"
	"math/big"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/structs"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const jobsTable = "jobs"

type jobs struct {
	db *pgdb.DB
}

func NewJobs(db *pgdb.DB) data.Jobs {
	return jobs{db: db}
}

type jobRow struct {
	ID        string    `structs:"id" db:"id"`
	OrderHash string    `structs:"order_hash" db:"order_hash"`
	Resolver  string    `structs:"resolver" db:"resolver"`
	Stake     string    `structs:"stake" db:"stake"`
	Status    uint8     `structs:"status" db:"status"`
	CreatedAt time.Time `structs:"created_at" db:"created_at"`
}

func (r jobRow) toJob() (data.Job, error) {
	stake, ok := new(big.Int).SetString(r.Stake, 10)
	if !ok {
		return data.Job{}, errors.Errorf("invalid stake stored: %s", r.Stake)
	}
	return data.Job{
		ID:        r.ID,
		OrderHash: common.HexToHash(r.OrderHash),
		Resolver:  common.HexToAddress(r.Resolver),
		Stake:     stake,
		Status:    data.JobStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}, nil
}

func (q jobs) Insert(j data.Job) error {
	row := jobRow{
		ID:        j.ID,
		OrderHash: j.OrderHash.Hex(),
		Resolver:  j.Resolver.Hex(),
		Stake:     j.Stake.String(),
		Status:    uint8(j.Status),
		CreatedAt: j.CreatedAt.UTC(),
	}
	stmt := squirrel.Insert(jobsTable).SetMap(structs.Map(row))
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to insert job")
}

func (q jobs) GetByOrder(orderHash common.Hash) (*data.Job, error) {
	var row jobRow
	stmt := squirrel.Select("*").From(jobsTable).Where(squirrel.Eq{"order_hash": orderHash.Hex()})

	if err := q.db.Get(&row, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select job")
	}

	j, err := row.toJob()
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (q jobs) UpdateStatus(id string, status data.JobStatus) error {
	stmt := squirrel.Update(jobsTable).Set("status", uint8(status)).Where(squirrel.Eq{"id": id})
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to update job status")
}
