package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type escrowCreatedEvent struct {
	Escrow        common.Address
	HashLock      [32]byte
	Amount        *big.Int
	SafetyDeposit *big.Int
}

func (w *watcher) handleSrcEscrowCreated(eventName string, l *types.Log) (*ChainEvent, error) {
	return w.handleEscrowCreated(EventSrcEscrowDeployed, eventName, l)
}

func (w *watcher) handleDstEscrowCreated(eventName string, l *types.Log) (*ChainEvent, error) {
	return w.handleEscrowCreated(EventDstEscrowDeployed, eventName, l)
}

func (w *watcher) handleEscrowCreated(kind EventKind, eventName string, l *types.Log) (*ChainEvent, error) {
	if len(l.Topics) < 2 {
		return nil, errors.New("missing order hash topic")
	}

	var event escrowCreatedEvent
	err := w.escrowAbi.UnpackIntoInterface(&event, eventName, l.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": eventName})
	}

	return &ChainEvent{
		Kind:          kind,
		Chain:         w.chainName,
		OrderHash:     l.Topics[1],
		HashLock:      common.Hash(event.HashLock),
		Escrow:        event.Escrow,
		Amount:        event.Amount,
		SafetyDeposit: event.SafetyDeposit,
		BlockNumber:   l.BlockNumber,
	}, nil
}

func (w *watcher) handleSecretRevealed(eventName string, l *types.Log) (*ChainEvent, error) {
	if len(l.Topics) < 2 {
		return nil, errors.New("missing order hash topic")
	}

	var event struct {
		Secret [32]byte
	}
	err := w.escrowAbi.UnpackIntoInterface(&event, eventName, l.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack event", logan.F{"event": eventName})
	}

	return &ChainEvent{
		Kind:        EventSecretRevealed,
		Chain:       w.chainName,
		OrderHash:   l.Topics[1],
		Secret:      common.Hash(event.Secret),
		BlockNumber: l.BlockNumber,
	}, nil
}

func (w *watcher) handleEscrowCancelled(eventName string, l *types.Log) (*ChainEvent, error) {
	if len(l.Topics) < 2 {
		return nil, errors.New("missing order hash topic")
	}

	return &ChainEvent{
		Kind:        EventEscrowCancelled,
		Chain:       w.chainName,
		OrderHash:   l.Topics[1],
		BlockNumber: l.BlockNumber,
	}, nil
}
