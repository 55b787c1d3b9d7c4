package service

import (
	"context"
	"time"

	"github.com/Swapica/relayer-svc/internal/data"
	"gitlab.com/distributed_lab/logan/v3"
)

// TimeoutSupervisor sweeps non-terminal orders on a fixed interval and
// expires those whose deadline elapsed before both escrows were locked and
// the reveal began. Orders already revealing are left alone: cancellation
// after reveal is unsafe.
type TimeoutSupervisor struct {
	log         *logan.Entry
	store       *OrderStore
	coordinator *EscrowCoordinator
	reporter    *reporter
}

func NewTimeoutSupervisor(log *logan.Entry, store *OrderStore, coordinator *EscrowCoordinator, rep *reporter) *TimeoutSupervisor {
	return &TimeoutSupervisor{log: log, store: store, coordinator: coordinator, reporter: rep}
}

func (s *TimeoutSupervisor) sweep(ctx context.Context) error {
	now := time.Now().UTC()
	expired, err := s.store.List(data.OrderFilter{
		Statuses:       []data.Status{data.StatusPending, data.StatusSrcLocked, data.StatusDstLocked},
		DeadlineBefore: &now,
	})
	if err != nil {
		return err
	}

	for _, o := range expired {
		s.expire(ctx, o)
	}
	return nil
}

func (s *TimeoutSupervisor) expire(ctx context.Context, o data.Order) {
	log := s.log.WithField("order_hash", o.OrderHash.Hex())

	err := s.store.Transition(o.OrderHash, o.Status, data.StatusExpired, TransitionPayload{})
	if isStale(err) {
		log.Debug("order moved concurrently, standing down")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to expire order")
		return
	}

	s.coordinator.closeJob(o.OrderHash, data.JobStatusFailed)
	s.reporter.orderUpdated(ctx, o.OrderHash, data.StatusExpired)

	// refund whatever escrows made it on-chain; a failure here is retried
	// implicitly since the funds stay claimable until the contract time-lock
	if err = s.coordinator.Cancel(ctx, &o); err != nil {
		log.WithError(err).Error("failed to cancel escrows of expired order")
		return
	}
	log.Info("order expired")
}
