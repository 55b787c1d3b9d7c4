package service

import (
	"context"
	"math/big"
	"time"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

const deployRetryPeriod = 5 * time.Second

// EscrowCoordinator drives escrow deployments in the required order: the
// destination escrow is never attempted without a verified proof of the
// source one, passed in as an input rather than a local flag.
type EscrowCoordinator struct {
	log    *logan.Entry
	store  *OrderStore
	jobs   data.Jobs
	chainA config.Network
	chainB config.Network

	resolver       common.Address
	stake          *big.Int
	safetyDeposit  *big.Int
	deployAttempts int
}

func NewEscrowCoordinator(log *logan.Entry, store *OrderStore, jobs data.Jobs,
	chainA, chainB config.Network, cfg config.Relayer) *EscrowCoordinator {

	return &EscrowCoordinator{
		log:            log,
		store:          store,
		jobs:           jobs,
		chainA:         chainA,
		chainB:         chainB,
		resolver:       cfg.Resolver,
		stake:          cfg.Stake,
		safetyDeposit:  cfg.SafetyDeposit,
		deployAttempts: cfg.DeployAttempts,
	}
}

// DeploySource submits the source escrow and, once it is buried under the
// configured confirmation depth, proposes pending -> src_locked.
func (c *EscrowCoordinator) DeploySource(ctx context.Context, orderHash common.Hash) error {
	o, err := c.store.Get(orderHash)
	if err != nil {
		return err
	}
	if o == nil {
		return errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}

	src, _ := legs(o, c.chainA, c.chainB)

	if err = c.openJob(o); err != nil {
		return errors.Wrap(err, "failed to open resolver job")
	}

	params := chain.DeployParams{
		OrderHash:     o.OrderHash,
		HashLock:      o.HashLock,
		Token:         o.SrcAsset,
		Amount:        o.SrcAmount,
		SafetyDeposit: c.safetyDeposit,
		Maker:         o.Maker,
		Deadline:      uint64(o.Deadline.Unix()),
	}

	receipt, err := c.deploy(ctx, orderHash, data.StatusPending, src, func(ctx context.Context) (common.Hash, error) {
		return src.Escrow.DeploySrc(ctx, params)
	})
	if err != nil {
		return err
	}

	escrow := &data.Escrow{
		OrderHash:            o.OrderHash,
		Side:                 data.EscrowSideSrc,
		Chain:                src.Name,
		Contract:             src.Escrow.Address(),
		LockedAmount:         o.SrcAmount,
		SafetyDeposit:        c.safetyDeposit,
		DeployedAtBlock:      receipt.BlockNumber,
		WithdrawalStart:      time.Now().UTC(),
		CancellationDeadline: o.Deadline,
	}
	return c.store.Transition(orderHash, data.StatusPending, data.StatusSrcLocked, TransitionPayload{Escrow: escrow})
}

// DeployDestination requires a proof of the source deployment already
// accepted by the destination verifier.
func (c *EscrowCoordinator) DeployDestination(ctx context.Context, orderHash common.Hash, proof chain.Proof) error {
	o, err := c.store.Get(orderHash)
	if err != nil {
		return err
	}
	if o == nil {
		return errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}
	if proof.OrderHash != o.OrderHash || proof.HashLock != o.HashLock {
		return errors.From(ErrInvalidProof, logan.F{
			"order_hash":      orderHash.Hex(),
			"proof_hash_lock": proof.HashLock.Hex(),
		})
	}

	_, dst := legs(o, c.chainA, c.chainB)

	params := chain.DeployParams{
		OrderHash:     o.OrderHash,
		HashLock:      o.HashLock,
		Token:         o.DstAsset,
		Amount:        o.DstAmount,
		SafetyDeposit: c.safetyDeposit,
		Maker:         o.Maker,
		Deadline:      uint64(o.Deadline.Unix()),
	}

	receipt, err := c.deploy(ctx, orderHash, data.StatusSrcLocked, dst, func(ctx context.Context) (common.Hash, error) {
		return dst.Escrow.DeployDst(ctx, params, proof)
	})
	if err != nil {
		return err
	}

	escrow := &data.Escrow{
		OrderHash:            o.OrderHash,
		Side:                 data.EscrowSideDst,
		Chain:                dst.Name,
		Contract:             dst.Escrow.Address(),
		LockedAmount:         o.DstAmount,
		SafetyDeposit:        c.safetyDeposit,
		DeployedAtBlock:      receipt.BlockNumber,
		WithdrawalStart:      time.Now().UTC(),
		CancellationDeadline: o.Deadline,
	}
	return c.store.Transition(orderHash, data.StatusSrcLocked, data.StatusDstLocked, TransitionPayload{Escrow: escrow})
}

// deploy submits with a bounded retry; before every attempt it re-reads the
// order and aborts cooperatively if the order left the expected state.
func (c *EscrowCoordinator) deploy(ctx context.Context, orderHash common.Hash, expected data.Status,
	net config.Network, submit func(ctx context.Context) (common.Hash, error)) (*chain.Receipt, error) {

	log := c.log.WithFields(logan.F{"order_hash": orderHash.Hex(), "chain": net.Name})

	var lastErr error
	for attempt := 1; attempt <= c.deployAttempts; attempt++ {
		cur, err := c.store.Get(orderHash)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.Status != expected {
			return nil, errors.From(ErrStaleTransition, logan.F{
				"order_hash": orderHash.Hex(),
				"expected":   expected.String(),
			})
		}

		tx, err := submit(ctx)
		if err == nil {
			var receipt *chain.Receipt
			receipt, err = net.Client.AwaitConfirmation(ctx, tx, net.ConfirmationDepth)
			if err == nil {
				if receipt.Success {
					return receipt, nil
				}
				err = errors.New("deployment transaction reverted")
			}
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("escrow deployment attempt failed")

		if attempt == c.deployAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "deployment aborted")
		case <-time.After(deployRetryPeriod * time.Duration(attempt)):
		}
	}

	return nil, errors.From(ErrEscrowDeploymentFailed, logan.F{
		"order_hash": orderHash.Hex(),
		"attempts":   c.deployAttempts,
		"reason":     lastErr.Error(),
	})
}

// Cancel issues the on-chain cancellation/refund for every deployed escrow of
// the order.
func (c *EscrowCoordinator) Cancel(ctx context.Context, o *data.Order) error {
	escrows, err := c.store.EscrowsOf(o.OrderHash)
	if err != nil {
		return err
	}

	for _, e := range escrows {
		net := c.chainA
		if e.Chain == c.chainB.Name {
			net = c.chainB
		}

		tx, err := net.Escrow.Cancel(ctx, o.OrderHash)
		if err != nil {
			return errors.Wrap(err, "failed to submit escrow cancellation", logan.F{
				"order_hash": o.OrderHash.Hex(),
				"chain":      e.Chain,
			})
		}

		receipt, err := net.Client.AwaitConfirmation(ctx, tx, net.ConfirmationDepth)
		if err != nil {
			return errors.Wrap(err, "failed to confirm escrow cancellation", logan.F{"chain": e.Chain})
		}
		if !receipt.Success {
			return errors.Errorf("escrow cancellation reverted on chain %s", e.Chain)
		}

		c.log.WithFields(logan.F{"order_hash": o.OrderHash.Hex(), "chain": e.Chain, "side": e.Side.String()}).
			Info("escrow cancelled")
	}
	return nil
}

func (c *EscrowCoordinator) openJob(o *data.Order) error {
	existing, err := c.jobs.GetByOrder(o.OrderHash)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return c.jobs.Insert(data.Job{
		ID:        uuid.New().String(),
		OrderHash: o.OrderHash,
		Resolver:  c.resolver,
		Stake:     c.stake,
		Status:    data.JobStatusOpen,
		CreatedAt: time.Now().UTC(),
	})
}

func (c *EscrowCoordinator) closeJob(orderHash common.Hash, status data.JobStatus) {
	job, err := c.jobs.GetByOrder(orderHash)
	if err != nil || job == nil {
		return
	}
	if err = c.jobs.UpdateStatus(job.ID, status); err != nil {
		c.log.WithError(err).WithField("job_id", job.ID).Error("failed to close job")
	}
}
