package service

import (
	"context"
	"math/big"
	"time"

	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3"
)

// dispatcher is the single consumer of the internal event bus. It maps
// normalized events onto state transitions and kicks the next pipeline stage.
// When a chain-observed event and a confirmation-driven path race on the same
// transition, exactly one wins; the loser gets a stale rejection and stands
// down, so each stage is triggered exactly once.
type dispatcher struct {
	log         *logan.Entry
	store       *OrderStore
	coordinator *EscrowCoordinator
	relay       *ProofRelay
	executor    *SwapExecutor
	reporter    *reporter
	chainA      config.Network
	chainB      config.Network
	events      <-chan ChainEvent
}

func (d *dispatcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-d.events:
			d.handle(ctx, e)
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, e ChainEvent) {
	log := d.log.WithFields(logan.F{"event": e.Kind.String(), "order_hash": e.OrderHash.Hex()})

	switch e.Kind {
	case EventOrderCreated:
		d.spawn(ctx, "deploy_source", e.OrderHash, d.deploySource)
	case EventSrcEscrowDeployed:
		d.onSrcEscrow(ctx, e)
	case EventDstEscrowDeployed:
		d.onDstEscrow(ctx, e)
	case EventSecretRevealed:
		d.onSecretRevealed(ctx, e)
	case EventEscrowCancelled:
		d.onCancelled(ctx, e)
	default:
		log.Warn("unknown event kind, skipping")
	}
}

// deploySource runs the pending -> src_locked stage and, having won it,
// continues into the proof relay stage.
func (d *dispatcher) deploySource(ctx context.Context, orderHash common.Hash) {
	log := d.log.WithField("order_hash", orderHash.Hex())

	err := d.coordinator.DeploySource(ctx, orderHash)
	if isStale(err) {
		log.Debug("source escrow already accounted for, standing down")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to deploy source escrow")
		return
	}

	d.reporter.orderUpdated(ctx, orderHash, data.StatusSrcLocked)
	d.relayAndDeployDst(ctx, orderHash)
}

// relayAndDeployDst runs the proof relay plus the src_locked -> dst_locked
// stage, then hands over to the executor.
func (d *dispatcher) relayAndDeployDst(ctx context.Context, orderHash common.Hash) {
	log := d.log.WithField("order_hash", orderHash.Hex())

	o, err := d.store.Get(orderHash)
	if err != nil || o == nil {
		log.WithError(err).Error("failed to load order for proof relay")
		return
	}
	src, dst := legs(o, d.chainA, d.chainB)

	proof, err := d.relay.ExtractProof(ctx, src, orderHash)
	if err != nil {
		log.WithError(err).Error("failed to extract deployment proof")
		return
	}

	if err = d.relay.SubmitProof(ctx, dst, proof); err != nil {
		// an invalid proof is permanent: the order stays src_locked and the
		// timeout supervisor takes it into the cancellation path
		log.WithError(err).Error("failed to submit deployment proof")
		return
	}

	err = d.coordinator.DeployDestination(ctx, orderHash, proof)
	if isStale(err) {
		log.Debug("destination escrow already accounted for, standing down")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to deploy destination escrow")
		return
	}

	d.reporter.orderUpdated(ctx, orderHash, data.StatusDstLocked)
	d.execute(ctx, orderHash)
}

func (d *dispatcher) execute(ctx context.Context, orderHash common.Hash) {
	log := d.log.WithField("order_hash", orderHash.Hex())

	err := d.executor.RevealAndExecute(ctx, orderHash)
	if isStale(err) {
		log.Debug("execution already in progress, standing down")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to execute swap")
		return
	}
	d.reporter.orderUpdated(ctx, orderHash, data.StatusExecuted)
}

// onSrcEscrow covers deployments observed on-chain before (or instead of) the
// coordinator's own confirmation path, e.g. after a relayer restart.
func (d *dispatcher) onSrcEscrow(ctx context.Context, e ChainEvent) {
	o, ok := d.tracked(e)
	if !ok {
		return
	}

	escrow := d.escrowRecord(o, e, data.EscrowSideSrc)
	err := d.store.Transition(o.OrderHash, data.StatusPending, data.StatusSrcLocked, TransitionPayload{Escrow: escrow})
	if isStale(err) {
		d.log.WithField("order_hash", o.OrderHash.Hex()).Debug("src escrow transition already applied")
		return
	}
	if err != nil {
		d.log.WithError(err).WithField("order_hash", o.OrderHash.Hex()).Error("failed to apply src escrow event")
		return
	}

	d.reporter.orderUpdated(ctx, o.OrderHash, data.StatusSrcLocked)
	d.spawn(ctx, "relay_and_deploy_dst", o.OrderHash, d.relayAndDeployDst)
}

func (d *dispatcher) onDstEscrow(ctx context.Context, e ChainEvent) {
	o, ok := d.tracked(e)
	if !ok {
		return
	}

	escrow := d.escrowRecord(o, e, data.EscrowSideDst)
	err := d.store.Transition(o.OrderHash, data.StatusSrcLocked, data.StatusDstLocked, TransitionPayload{Escrow: escrow})
	if isStale(err) {
		d.log.WithField("order_hash", o.OrderHash.Hex()).Debug("dst escrow transition already applied")
		return
	}
	if err != nil {
		d.log.WithError(err).WithField("order_hash", o.OrderHash.Hex()).Error("failed to apply dst escrow event")
		return
	}

	d.reporter.orderUpdated(ctx, o.OrderHash, data.StatusDstLocked)
	d.spawn(ctx, "execute", o.OrderHash, d.execute)
}

// onSecretRevealed records a reveal observed on-chain, which matters when the
// counterparty (or a restarted relayer instance) revealed rather than this
// process, and kicks the source-side claim so the swap always finishes.
func (d *dispatcher) onSecretRevealed(ctx context.Context, e ChainEvent) {
	o, ok := d.tracked(e)
	if !ok {
		return
	}

	secret := e.Secret
	err := d.store.Transition(o.OrderHash, data.StatusDstLocked, data.StatusRevealing, TransitionPayload{Secret: &secret})
	if isStale(err) {
		// a replay after a restart, or a reveal this process performed
		// itself; claim only if the source leg is still owed
		cur, getErr := d.store.Get(o.OrderHash)
		if getErr != nil || cur == nil || cur.Status != data.StatusRevealing {
			d.log.WithField("order_hash", o.OrderHash.Hex()).Debug("reveal already recorded")
			return
		}
		d.spawn(ctx, "claim_source", o.OrderHash, d.claimSource)
		return
	}
	if err != nil {
		d.log.WithError(err).WithField("order_hash", o.OrderHash.Hex()).Error("failed to record revealed secret")
		return
	}
	d.spawn(ctx, "claim_source", o.OrderHash, d.claimSource)
}

// claimSource finishes the swap for a reveal recorded from chain events,
// standing down if the executor's own pipeline got there first.
func (d *dispatcher) claimSource(ctx context.Context, orderHash common.Hash) {
	log := d.log.WithField("order_hash", orderHash.Hex())

	err := d.executor.ClaimSource(ctx, orderHash)
	if isStale(err) {
		log.Debug("source claim already handled, standing down")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to claim source escrow")
		return
	}
	d.reporter.orderUpdated(ctx, orderHash, data.StatusExecuted)
}

func (d *dispatcher) onCancelled(ctx context.Context, e ChainEvent) {
	o, ok := d.tracked(e)
	if !ok {
		return
	}
	if o.Status.Terminal() || o.Status == data.StatusRevealing {
		return
	}

	err := d.store.Transition(o.OrderHash, o.Status, data.StatusCancelled, TransitionPayload{})
	if isStale(err) {
		return
	}
	if err != nil {
		d.log.WithError(err).WithField("order_hash", o.OrderHash.Hex()).Error("failed to apply cancellation event")
		return
	}
	d.reporter.orderUpdated(ctx, o.OrderHash, data.StatusCancelled)
}

// tracked resolves the event's order and drops events for orders this relayer
// does not know, or whose hash lock does not match the on-chain one.
func (d *dispatcher) tracked(e ChainEvent) (*data.Order, bool) {
	o, err := d.store.Get(e.OrderHash)
	if err != nil {
		d.log.WithError(err).WithField("order_hash", e.OrderHash.Hex()).Error("failed to resolve event order")
		return nil, false
	}
	if o == nil {
		d.log.WithField("order_hash", e.OrderHash.Hex()).Debug("event for untracked order, skipping")
		return nil, false
	}
	if (e.HashLock != common.Hash{}) && e.HashLock != o.HashLock {
		d.log.WithFields(logan.F{
			"order_hash": e.OrderHash.Hex(),
			"hash_lock":  e.HashLock.Hex(),
		}).Warn("event hash lock mismatch, skipping")
		return nil, false
	}
	return o, true
}

func (d *dispatcher) escrowRecord(o *data.Order, e ChainEvent, side data.EscrowSide) *data.Escrow {
	amount := e.Amount
	deposit := e.SafetyDeposit
	if amount == nil {
		amount = o.SrcAmount
		if side == data.EscrowSideDst {
			amount = o.DstAmount
		}
	}
	if deposit == nil {
		deposit = new(big.Int)
	}
	return &data.Escrow{
		OrderHash:            o.OrderHash,
		Side:                 side,
		Chain:                e.Chain,
		Contract:             e.Escrow,
		LockedAmount:         amount,
		SafetyDeposit:        deposit,
		DeployedAtBlock:      e.BlockNumber,
		WithdrawalStart:      time.Now().UTC(),
		CancellationDeadline: o.Deadline,
	}
}

// spawn runs a pipeline stage asynchronously so the bus never blocks on chain
// round-trips.
func (d *dispatcher) spawn(ctx context.Context, name string, orderHash common.Hash, fn func(ctx context.Context, orderHash common.Hash)) {
	go func() {
		defer func() {
			if rvr := recover(); rvr != nil {
				d.log.WithRecover(rvr).WithFields(logan.F{
					"stage":      name,
					"order_hash": orderHash.Hex(),
				}).Error("pipeline stage panicked")
			}
		}()
		fn(ctx, orderHash)
	}()
}
