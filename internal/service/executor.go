package service

import (
	"context"
	"sync"
	"time"

	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// SwapExecutor performs the reveal-then-claim sequence. The destination chain
// reveals first: once its withdrawal lands the secret is public and the
// source leg is claimed with the same value, which is what makes the swap
// atomic. The window between the two claims is the one asymmetric risk the
// executor must surface, never hide.
type SwapExecutor struct {
	log         *logan.Entry
	store       *OrderStore
	vault       *SecretVault
	coordinator *EscrowCoordinator
	chainA      config.Network
	chainB      config.Network

	mu       sync.Mutex
	claiming map[common.Hash]struct{}
}

func NewSwapExecutor(log *logan.Entry, store *OrderStore, vault *SecretVault,
	coordinator *EscrowCoordinator, chainA, chainB config.Network) *SwapExecutor {

	return &SwapExecutor{
		log:         log,
		store:       store,
		vault:       vault,
		coordinator: coordinator,
		chainA:      chainA,
		chainB:      chainB,
		claiming:    make(map[common.Hash]struct{}),
	}
}

func (e *SwapExecutor) RevealAndExecute(ctx context.Context, orderHash common.Hash) error {
	o, err := e.store.Get(orderHash)
	if err != nil {
		return err
	}
	if o == nil {
		return errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}
	if o.Status != data.StatusDstLocked {
		return errors.From(ErrStaleTransition, logan.F{
			"order_hash": orderHash.Hex(),
			"current":    o.Status.String(),
		})
	}

	src, dst := legs(o, e.chainA, e.chainB)
	log := e.log.WithField("order_hash", orderHash.Hex())

	secret, err := e.vault.Reveal(orderHash)
	if err != nil {
		return errors.Wrap(err, "failed to obtain secret")
	}

	// first leg: reveal on the destination chain
	tx, err := dst.Escrow.Withdraw(ctx, orderHash, secret)
	if err != nil {
		return errors.Wrap(err, "failed to submit destination withdrawal")
	}
	receipt, err := dst.Client.AwaitConfirmation(ctx, tx, dst.ConfirmationDepth)
	if err != nil {
		return errors.Wrap(err, "failed to confirm destination withdrawal")
	}
	if !receipt.Success {
		// nothing revealed yet; the order stays dst_locked and is eligible
		// for another attempt or eventual expiry
		return errors.Errorf("destination withdrawal reverted, tx=%s", tx.Hex())
	}

	revealed := common.BytesToHash(secret[:])
	err = e.store.Transition(orderHash, data.StatusDstLocked, data.StatusRevealing, TransitionPayload{Secret: &revealed})
	if err != nil && !isStale(err) {
		return err
	}
	log.WithField("tx_hash", tx.Hex()).Info("secret revealed on destination chain")

	// second leg: the secret is public now, claim the source escrow with it
	return e.claimSource(ctx, orderHash, src, secret)
}

// ClaimSource finishes a swap whose reveal is already recorded: the order is
// revealing and carries the persisted secret, only the source leg is owed. It
// covers reveals observed from chain events and claims interrupted by a
// restart.
func (e *SwapExecutor) ClaimSource(ctx context.Context, orderHash common.Hash) error {
	o, err := e.store.Get(orderHash)
	if err != nil {
		return err
	}
	if o == nil {
		return errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}
	if o.Status != data.StatusRevealing {
		return errors.From(ErrStaleTransition, logan.F{
			"order_hash": orderHash.Hex(),
			"current":    o.Status.String(),
		})
	}
	if o.Secret == nil {
		return errors.Errorf("order %s is revealing without a recorded secret", orderHash.Hex())
	}

	src, _ := legs(o, e.chainA, e.chainB)
	return e.claimSource(ctx, orderHash, src, [32]byte(*o.Secret))
}

// claimSource submits the source-side withdrawal and drives
// revealing -> executed. Concurrent claims of the same order collapse into
// one; the loser stands down without touching the chain.
func (e *SwapExecutor) claimSource(ctx context.Context, orderHash common.Hash, src config.Network, secret [32]byte) error {
	if !e.beginClaim(orderHash) {
		return errors.From(ErrStaleTransition, logan.F{
			"order_hash": orderHash.Hex(),
			"reason":     "claim already in flight",
		})
	}
	defer e.endClaim(orderHash)

	tx, err := src.Escrow.Withdraw(ctx, orderHash, secret)
	if err != nil {
		return e.markStuck(orderHash, errors.Wrap(err, "failed to submit source claim"))
	}
	receipt, err := src.Client.AwaitConfirmation(ctx, tx, src.ConfirmationDepth)
	if err != nil {
		return e.markStuck(orderHash, errors.Wrap(err, "failed to confirm source claim"))
	}
	if !receipt.Success {
		return e.markStuck(orderHash, errors.Errorf("source claim reverted, tx=%s", tx.Hex()))
	}

	now := time.Now().UTC()
	err = e.store.Transition(orderHash, data.StatusRevealing, data.StatusExecuted, TransitionPayload{ExecutedAt: &now})
	if err != nil {
		return err
	}
	e.coordinator.closeJob(orderHash, data.JobStatusCompleted)
	e.log.WithFields(logan.F{"order_hash": orderHash.Hex(), "tx_hash": tx.Hex()}).Info("swap executed")
	return nil
}

func (e *SwapExecutor) beginClaim(orderHash common.Hash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.claiming[orderHash]; ok {
		return false
	}
	e.claiming[orderHash] = struct{}{}
	return true
}

func (e *SwapExecutor) endClaim(orderHash common.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.claiming, orderHash)
}

// markStuck flags the asymmetric post-reveal failure: funds on the
// destination chain already moved, the source claim did not land. The order
// is distinct from executed/cancelled/expired and waits for an operator.
func (e *SwapExecutor) markStuck(orderHash common.Hash, cause error) error {
	if err := e.store.Transition(orderHash, data.StatusRevealing, data.StatusStuck, TransitionPayload{}); err != nil && !isStale(err) {
		e.log.WithError(err).WithField("order_hash", orderHash.Hex()).
			Error("failed to flag order as stuck")
	}
	e.coordinator.closeJob(orderHash, data.JobStatusFailed)
	e.log.WithError(cause).WithField("order_hash", orderHash.Hex()).
		Error("source claim failed after reveal, order stuck, manual intervention required")
	return errors.Wrap(cause, "order stuck after reveal")
}
