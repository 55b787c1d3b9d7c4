package service

import (
	"context"
	"math/big"
	"time"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/chain/evm"
	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

type watcherHandler func(eventName string, log *types.Log) (*ChainEvent, error)

// watcher consumes one chain's escrow logs, normalizes them and publishes
// them onto the internal bus. It is read-only towards the chain and proposes
// nothing itself; the dispatcher owns the transitions.
type watcher struct {
	log       *logan.Entry
	chainName string
	client    chain.Client
	contract  common.Address
	escrowAbi abi.ABI

	blocks   data.LastBlocks
	reporter *reporter
	events   chan<- ChainEvent

	blockRange     uint64
	requestTimeout time.Duration

	handlers map[string]watcherHandler
}

func newWatcher(log *logan.Entry, net config.Network, blocks data.LastBlocks, rep *reporter, events chan<- ChainEvent) *watcher {
	w := &watcher{
		log:            log.WithField("chain", net.Name),
		chainName:      net.Name,
		client:         net.Client,
		contract:       net.Contract,
		escrowAbi:      evm.EscrowABI(),
		blocks:         blocks,
		reporter:       rep,
		events:         events,
		blockRange:     net.BlockRange,
		requestTimeout: net.RequestTimeout,
	}

	w.handlers = map[string]watcherHandler{
		"SrcEscrowCreated": w.handleSrcEscrowCreated,
		"DstEscrowCreated": w.handleDstEscrowCreated,
		"SecretRevealed":   w.handleSecretRevealed,
		"EscrowCancelled":  w.handleEscrowCancelled,
	}
	return w
}

// run is restarted with backoff by the main loop on any returned error, which
// gives transient RPC failures the retry-forever semantics they need.
func (w *watcher) run(ctx context.Context) error {
	if err := w.catchUp(ctx); err != nil {
		return errors.Wrap(err, "failed to catch up")
	}

	sink := make(chan types.Log, 1024)
	sub, err := w.client.SubscribeLogs(ctx, w.filters(), sink)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to logs")
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err = <-sub.Err():
			return errors.Wrap(err, "log subscription failed")
		case l := <-sink:
			w.handleLog(ctx, l)
			w.checkpoint(ctx, l.BlockNumber)
		}
	}
}

func (w *watcher) catchUp(ctx context.Context) error {
	last, err := w.blocks.Get(w.chainName)
	if err != nil {
		return errors.Wrap(err, "failed to get last handled block")
	}
	var from uint64
	if last != nil {
		from = *last + 1
	}

	childCtx, cancel := context.WithTimeout(ctx, w.requestTimeout)
	head, err := w.client.BlockNumber(childCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "failed to get head block number")
	}
	if from > head {
		return nil
	}

	step := w.blockRange
	if step == 0 {
		step = head - from
	}
	for start := from; start <= head; start += step + 1 {
		end := start + step
		if end > head {
			end = head
		}

		q := w.filters()
		q.FromBlock = new(big.Int).SetUint64(start)
		q.ToBlock = new(big.Int).SetUint64(end)

		childCtx, cancel := context.WithTimeout(ctx, w.requestTimeout)
		logs, err := w.client.FilterLogs(childCtx, q)
		cancel()
		if err != nil {
			return errors.Wrap(err, "failed to filter logs")
		}
		for _, l := range logs {
			w.handleLog(ctx, l)
		}
	}

	w.checkpoint(ctx, head)
	w.log.WithField("head", head).Info("caught up with the chain")
	return nil
}

// handleLog never fails the loop: a malformed or foreign event is logged and
// skipped.
func (w *watcher) handleLog(ctx context.Context, l types.Log) {
	if l.Removed || len(l.Topics) == 0 {
		return
	}

	event, err := w.escrowAbi.EventByID(l.Topics[0])
	if err != nil {
		w.log.WithField("topic", l.Topics[0].Hex()).Debug("unknown event topic, skipping")
		return
	}

	handler, ok := w.handlers[event.Name]
	if !ok {
		w.log.WithField("event_name", event.Name).Debug("no handler for event, skipping")
		return
	}

	normalized, err := handler(event.Name, &l)
	if err != nil {
		w.log.WithError(err).WithFields(logan.F{
			"event_name": event.Name,
			"tx_hash":    l.TxHash.Hex(),
		}).Warn("failed to parse event, skipping")
		return
	}

	select {
	case <-ctx.Done():
	case w.events <- *normalized:
	}
}

func (w *watcher) checkpoint(ctx context.Context, height uint64) {
	if err := w.blocks.Set(w.chainName, height); err != nil {
		w.log.WithError(err).Error("failed to save last block")
		return
	}
	w.reporter.lastBlock(ctx, w.chainName, height)
}

func (w *watcher) filters() ethereum.FilterQuery {
	topics := make([]common.Hash, 0, len(w.handlers))
	for eventName := range w.handlers {
		topics = append(topics, w.escrowAbi.Events[eventName].ID)
	}

	return ethereum.FilterQuery{
		Addresses: []common.Address{w.contract},
		Topics:    [][]common.Hash{topics},
	}
}
