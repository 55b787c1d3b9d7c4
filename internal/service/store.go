package service

import (
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// OrderStore is the single authority over order and escrow records. Every
// other component proposes transitions through Transition and never mutates
// state on its own.
type OrderStore struct {
	log     *logan.Entry
	orders  data.Orders
	escrows data.Escrows

	mu    sync.Mutex
	locks map[common.Hash]*sync.Mutex

	terminalHooks []func(common.Hash)
}

func NewOrderStore(log *logan.Entry, orders data.Orders, escrows data.Escrows) *OrderStore {
	return &OrderStore{
		log:     log,
		orders:  orders,
		escrows: escrows,
		locks:   make(map[common.Hash]*sync.Mutex),
	}
}

// OnTerminal registers a callback fired once an order reaches a terminal
// status. Register before the relayer starts serving, the slice is not
// guarded afterwards.
func (s *OrderStore) OnTerminal(fn func(common.Hash)) {
	s.terminalHooks = append(s.terminalHooks, fn)
}

type CreateOrderParams struct {
	Direction data.Direction
	Maker     common.Address
	SrcAsset  common.Address
	DstAsset  common.Address
	SrcAmount *big.Int
	DstAmount *big.Int
	Deadline  time.Time
	Nonce     uint64
}

// TransitionPayload carries the updates applied together with a successful
// status swap. The secret may only travel with the revealing transition.
type TransitionPayload struct {
	Escrow     *data.Escrow
	Secret     *common.Hash
	ExecutedAt *time.Time
}

// nextStatuses defines the strictly forward state machine; anything not
// listed is an illegal step.
var nextStatuses = map[data.Status][]data.Status{
	data.StatusPending:   {data.StatusSrcLocked, data.StatusCancelled, data.StatusExpired},
	data.StatusSrcLocked: {data.StatusDstLocked, data.StatusCancelled, data.StatusExpired},
	data.StatusDstLocked: {data.StatusRevealing, data.StatusCancelled, data.StatusExpired},
	data.StatusRevealing: {data.StatusExecuted, data.StatusStuck},
}

func validStep(from, to data.Status) bool {
	for _, s := range nextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderHash derives the deterministic order identifier from the immutable
// order parameters.
func OrderHash(p CreateOrderParams) common.Hash {
	buf := make([]byte, 0, 3*common.AddressLength+2*common.HashLength+16)
	buf = append(buf, p.Maker.Bytes()...)
	buf = append(buf, p.SrcAsset.Bytes()...)
	buf = append(buf, p.DstAsset.Bytes()...)
	buf = append(buf, common.LeftPadBytes(p.SrcAmount.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(p.DstAmount.Bytes(), 32)...)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(p.Deadline.Unix()))
	buf = append(buf, ts[:]...)

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], p.Nonce)
	buf = append(buf, nonce[:]...)

	return crypto.Keccak256Hash(buf)
}

func validateOrderParams(p CreateOrderParams) error {
	fields := logan.F{}
	switch {
	case !p.Direction.Valid():
		fields["reason"] = "unknown direction"
	case p.SrcAmount == nil || p.SrcAmount.Sign() <= 0:
		fields["reason"] = "src_amount must be positive"
	case p.DstAmount == nil || p.DstAmount.Sign() <= 0:
		fields["reason"] = "dst_amount must be positive"
	case !p.Deadline.After(time.Now()):
		fields["reason"] = "deadline must be in the future"
	case p.SrcAsset == p.DstAsset:
		fields["reason"] = "src_asset and dst_asset must differ"
	default:
		return nil
	}
	return errors.From(ErrInvalidOrderParams, fields)
}

// CreateOrder validates the params and inserts the order in pending state.
// The hash lock must already be generated for the derived order hash.
func (s *OrderStore) CreateOrder(p CreateOrderParams, hashLock common.Hash) (data.Order, error) {
	if err := validateOrderParams(p); err != nil {
		return data.Order{}, err
	}

	o := data.Order{
		OrderHash: OrderHash(p),
		Direction: p.Direction,
		Maker:     p.Maker,
		SrcAsset:  p.SrcAsset,
		DstAsset:  p.DstAsset,
		SrcAmount: p.SrcAmount,
		DstAmount: p.DstAmount,
		Deadline:  p.Deadline.UTC(),
		Nonce:     p.Nonce,
		HashLock:  hashLock,
		Status:    data.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.orders.Insert(o); err != nil {
		return data.Order{}, errors.Wrap(err, "failed to insert order")
	}

	s.log.WithFields(logan.F{"order_hash": o.OrderHash.Hex(), "direction": o.Direction}).
		Info("order created")
	return o, nil
}

// Transition is the only mutator of order state. It serializes transitions
// per order and atomically checks the expected from-state, so a chain-event
// driven transition and a timeout-driven one can race safely.
func (s *OrderStore) Transition(orderHash common.Hash, from, to data.Status, payload TransitionPayload) error {
	if !validStep(from, to) {
		return errors.Errorf("illegal transition %s -> %s", from, to)
	}
	if payload.Secret != nil && to != data.StatusRevealing {
		return errors.New("secret may only be persisted on the revealing transition")
	}

	lock := s.orderLock(orderHash)
	lock.Lock()
	defer lock.Unlock()

	ok, err := s.orders.UpdateStatus(orderHash, from, to)
	if err != nil {
		return errors.Wrap(err, "failed to update order status")
	}
	if !ok {
		fields := logan.F{"order_hash": orderHash.Hex(), "expected": from.String(), "to": to.String()}
		if cur, getErr := s.orders.Get(orderHash); getErr == nil && cur != nil {
			fields["current"] = cur.Status.String()
		}
		return errors.From(ErrStaleTransition, fields)
	}

	if payload.Escrow != nil {
		if err = s.escrows.Insert(*payload.Escrow); err != nil {
			return errors.Wrap(err, "failed to insert escrow")
		}
	}
	if payload.Secret != nil {
		if err = s.orders.SetSecret(orderHash, *payload.Secret); err != nil {
			return errors.Wrap(err, "failed to persist revealed secret")
		}
	}
	if payload.ExecutedAt != nil {
		if err = s.orders.SetExecutedAt(orderHash, *payload.ExecutedAt); err != nil {
			return errors.Wrap(err, "failed to set executed_at")
		}
	}

	s.log.WithFields(logan.F{"order_hash": orderHash.Hex(), "from": from.String(), "to": to.String()}).
		Info("order transitioned")

	if to.Terminal() {
		s.releaseLock(orderHash)
		for _, fn := range s.terminalHooks {
			fn(orderHash)
		}
	}
	return nil
}

func (s *OrderStore) Get(orderHash common.Hash) (*data.Order, error) {
	o, err := s.orders.Get(orderHash)
	return o, errors.Wrap(err, "failed to get order")
}

func (s *OrderStore) List(filter data.OrderFilter) ([]data.Order, error) {
	list, err := s.orders.Select(filter)
	return list, errors.Wrap(err, "failed to list orders")
}

func (s *OrderStore) Escrow(orderHash common.Hash, side data.EscrowSide) (*data.Escrow, error) {
	e, err := s.escrows.Get(orderHash, side)
	return e, errors.Wrap(err, "failed to get escrow")
}

func (s *OrderStore) EscrowsOf(orderHash common.Hash) ([]data.Escrow, error) {
	list, err := s.escrows.SelectByOrder(orderHash)
	return list, errors.Wrap(err, "failed to list escrows")
}

func (s *OrderStore) orderLock(orderHash common.Hash) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[orderHash]
	if !ok {
		lock = new(sync.Mutex)
		s.locks[orderHash] = lock
	}
	return lock
}

// releaseLock drops the per-order mutex once the order can no longer
// transition. A late caller gets a fresh mutex, which is safe since the CAS
// in UpdateStatus rejects any further step anyway.
func (s *OrderStore) releaseLock(orderHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, orderHash)
}
