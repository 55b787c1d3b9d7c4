package postgres

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/Swapica/relayer-svc/internal/data"
	"gitlab.com/distributed_lab/kit/pgdb"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const blocksTable = "last_blocks"

type blocks struct {
	db *pgdb.DB
}

func NewLastBlocks(db *pgdb.DB) data.LastBlocks {
	return blocks{db: db}
}

func (q blocks) Set(chain string, n uint64) error {
	cur, err := q.Get(chain)
	if err != nil {
		return err
	}
	if cur == nil {
		stmt := squirrel.Insert(blocksTable).Columns("chain", "height").Values(chain, n)
		err = q.db.Exec(stmt)
		return errors.Wrap(err, "failed to insert last block")
	}

	stmt := squirrel.Update(blocksTable).Set("height", n).Where(squirrel.Eq{"chain": chain})
	err = q.db.Exec(stmt)
	return errors.Wrap(err, "failed to update last block")
}

func (q blocks) Get(chain string) (*uint64, error) {
	var result struct {
		Height uint64 `db:"height"`
	}
	stmt := squirrel.Select("height").From(blocksTable).Where(squirrel.Eq{"chain": chain})

	if err := q.db.Get(&result, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select last block")
	}

	return &result.Height, nil
}
