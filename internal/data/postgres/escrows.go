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

const escrowsTable = "escrows"

type escrows struct {
	db *pgdb.DB
}

func NewEscrows(db *pgdb.DB) data.Escrows {
	return escrows{db: db}
}

type escrowRow struct {
	OrderHash            string    `structs:"order_hash" db:"order_hash"`
	Side                 uint8     `structs:"side" db:"side"`
	Chain                string    `structs:"chain" db:"chain"`
	Contract             string    `structs:"contract" db:"contract"`
	LockedAmount         string    `structs:"locked_amount" db:"locked_amount"`
	SafetyDeposit        string    `structs:"safety_deposit" db:"safety_deposit"`
	DeployedAtBlock      int64     `structs:"deployed_at_block" db:"deployed_at_block"`
	WithdrawalStart      time.Time `structs:"withdrawal_start" db:"withdrawal_start"`
	CancellationDeadline time.Time `structs:"cancellation_deadline" db:"cancellation_deadline"`
}

func toEscrowRow(e data.Escrow) escrowRow {
	return escrowRow{
		OrderHash:            e.OrderHash.Hex(),
		Side:                 uint8(e.Side),
		Chain:                e.Chain,
		Contract:             e.Contract.Hex(),
		LockedAmount:         e.LockedAmount.String(),
		SafetyDeposit:        e.SafetyDeposit.String(),
		DeployedAtBlock:      int64(e.DeployedAtBlock),
		WithdrawalStart:      e.WithdrawalStart.UTC(),
		CancellationDeadline: e.CancellationDeadline.UTC(),
	}
}

func (r escrowRow) toEscrow() (data.Escrow, error) {
	locked, ok := new(big.Int).SetString(r.LockedAmount, 10)
	if !ok {
		return data.Escrow{}, errors.Errorf("invalid locked_amount stored: %s", r.LockedAmount)
	}
	deposit, ok := new(big.Int).SetString(r.SafetyDeposit, 10)
	if !ok {
		return data.Escrow{}, errors.Errorf("invalid safety_deposit stored: %s", r.SafetyDeposit)
	}

	return data.Escrow{
		OrderHash:            common.HexToHash(r.OrderHash),
		Side:                 data.EscrowSide(r.Side),
		Chain:                r.Chain,
		Contract:             common.HexToAddress(r.Contract),
		LockedAmount:         locked,
		SafetyDeposit:        deposit,
		DeployedAtBlock:      uint64(r.DeployedAtBlock),
		WithdrawalStart:      r.WithdrawalStart,
		CancellationDeadline: r.CancellationDeadline,
	}, nil
}

func (q escrows) Insert(e data.Escrow) error {
	stmt := squirrel.Insert(escrowsTable).SetMap(structs.Map(toEscrowRow(e)))
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to insert escrow")
}

func (q escrows) Get(orderHash common.Hash, side data.EscrowSide) (*data.Escrow, error) {
	var row escrowRow
	stmt := squirrel.Select("*").From(escrowsTable).
		Where(squirrel.Eq{"order_hash": orderHash.Hex(), "side": uint8(side)})

	if err := q.db.Get(&row, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select escrow")
	}

	e, err := row.toEscrow()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (q escrows) SelectByOrder(orderHash common.Hash) ([]data.Escrow, error) {
	var rows []escrowRow
	stmt := squirrel.Select("*").From(escrowsTable).
		Where(squirrel.Eq{"order_hash": orderHash.Hex()}).OrderBy("side")

	if err := q.db.Select(&rows, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select escrows")
	}

	result := make([]data.Escrow, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEscrow()
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}
