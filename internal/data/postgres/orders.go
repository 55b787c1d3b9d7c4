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

const ordersTable = "orders"

type orders struct {
	db *pgdb.DB
}

func NewOrders(db *pgdb.DB) data.Orders {
	return orders{db: db}
}

// orderRow flattens data.Order into db-safe column types; amounts travel as
// decimal strings, hashes and addresses as hex.
type orderRow struct {
	OrderHash  string       `structs:"order_hash" db:"order_hash"`
	Direction  uint8        `structs:"direction" db:"direction"`
	Maker      string       `structs:"maker" db:"maker"`
	SrcAsset   string       `structs:"src_asset" db:"src_asset"`
	DstAsset   string       `structs:"dst_asset" db:"dst_asset"`
	SrcAmount  string       `structs:"src_amount" db:"src_amount"`
	DstAmount  string       `structs:"dst_amount" db:"dst_amount"`
	Deadline   time.Time    `structs:"deadline" db:"deadline"`
	Nonce      int64        `structs:"nonce" db:"nonce"`
	HashLock   string       `structs:"hash_lock" db:"hash_lock"`
	Secret     *string      `structs:"secret,omitempty,omitnested" db:"secret"`
	Status     uint8        `structs:"status" db:"status"`
	CreatedAt  time.Time    `structs:"created_at" db:"created_at"`
	ExecutedAt sql.NullTime `structs:"executed_at,omitempty,omitnested" db:"executed_at"`
}

func toOrderRow(o data.Order) orderRow {
	row := orderRow{
		OrderHash: o.OrderHash.Hex(),
		Direction: uint8(o.Direction),
		Maker:     o.Maker.Hex(),
		SrcAsset:  o.SrcAsset.Hex(),
		DstAsset:  o.DstAsset.Hex(),
		SrcAmount: o.SrcAmount.String(),
		DstAmount: o.DstAmount.String(),
		Deadline:  o.Deadline.UTC(),
		Nonce:     int64(o.Nonce),
		HashLock:  o.HashLock.Hex(),
		Status:    uint8(o.Status),
		CreatedAt: o.CreatedAt.UTC(),
	}
	if o.Secret != nil {
		s := o.Secret.Hex()
		row.Secret = &s
	}
	if o.ExecutedAt != nil {
		row.ExecutedAt = sql.NullTime{Time: o.ExecutedAt.UTC(), Valid: true}
	}
	return row
}

func (r orderRow) toOrder() (data.Order, error) {
	srcAmount, ok := new(big.Int).SetString(r.SrcAmount, 10)
	if !ok {
		return data.Order{}, errors.Errorf("invalid src_amount stored: %s", r.SrcAmount)
	}
	dstAmount, ok := new(big.Int).SetString(r.DstAmount, 10)
	if !ok {
		return data.Order{}, errors.Errorf("invalid dst_amount stored: %s", r.DstAmount)
	}

	o := data.Order{
		OrderHash: common.HexToHash(r.OrderHash),
		Direction: data.Direction(r.Direction),
		Maker:     common.HexToAddress(r.Maker),
		SrcAsset:  common.HexToAddress(r.SrcAsset),
		DstAsset:  common.HexToAddress(r.DstAsset),
		SrcAmount: srcAmount,
		DstAmount: dstAmount,
		Deadline:  r.Deadline,
		Nonce:     uint64(r.Nonce),
		HashLock:  common.HexToHash(r.HashLock),
		Status:    data.Status(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.Secret != nil {
		secret := common.HexToHash(*r.Secret)
		o.Secret = &secret
	}
	if r.ExecutedAt.Valid {
		at := r.ExecutedAt.Time
		o.ExecutedAt = &at
	}
	return o, nil
}

func (q orders) Insert(o data.Order) error {
	stmt := squirrel.Insert(ordersTable).SetMap(structs.Map(toOrderRow(o)))
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to insert order")
}

func (q orders) Get(orderHash common.Hash) (*data.Order, error) {
	var row orderRow
	stmt := squirrel.Select("*").From(ordersTable).Where(squirrel.Eq{"order_hash": orderHash.Hex()})

	if err := q.db.Get(&row, stmt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to select order")
	}

	o, err := row.toOrder()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (q orders) Select(filter data.OrderFilter) ([]data.Order, error) {
	stmt := squirrel.Select("*").From(ordersTable).OrderBy("created_at")
	if len(filter.Statuses) > 0 {
		statuses := make([]uint8, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, uint8(s))
		}
		stmt = stmt.Where(squirrel.Eq{"status": statuses})
	}
	if filter.DeadlineBefore != nil {
		stmt = stmt.Where(squirrel.Lt{"deadline": filter.DeadlineBefore.UTC()})
	}
	if filter.Maker != nil {
		stmt = stmt.Where(squirrel.Eq{"maker": filter.Maker.Hex()})
	}

	var rows []orderRow
	if err := q.db.Select(&rows, stmt); err != nil {
		return nil, errors.Wrap(err, "failed to select orders")
	}

	result := make([]data.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toOrder()
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

func (q orders) UpdateStatus(orderHash common.Hash, from, to data.Status) (bool, error) {
	stmt := squirrel.Update(ordersTable).
		Set("status", uint8(to)).
		Where(squirrel.Eq{"order_hash": orderHash.Hex(), "status": uint8(from)})

	res, err := q.db.ExecWithResult(stmt)
	if err != nil {
		return false, errors.Wrap(err, "failed to update order status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get affected rows")
	}
	return affected > 0, nil
}

func (q orders) SetSecret(orderHash common.Hash, secret common.Hash) error {
	stmt := squirrel.Update(ordersTable).
		Set("secret", secret.Hex()).
		Where(squirrel.Eq{"order_hash": orderHash.Hex()})
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to set order secret")
}

func (q orders) SetExecutedAt(orderHash common.Hash, at time.Time) error {
	stmt := squirrel.Update(ordersTable).
		Set("executed_at", at.UTC()).
		Where(squirrel.Eq{"order_hash": orderHash.Hex()})
	err := q.db.Exec(stmt)
	return errors.Wrap(err, "failed to set order executed_at")
}
