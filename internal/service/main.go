package service

import (
	"context"
	"time"

	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/Swapica/relayer-svc/internal/data/postgres"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"
	"gitlab.com/distributed_lab/running"
)

// Relayer is the swap coordinator core. Its exported methods are the contract
// consumed by the upstream API surface; run drives the background loops.
type Relayer struct {
	log    *logan.Entry
	chainA config.Network
	chainB config.Network

	store       *OrderStore
	vault       *SecretVault
	coordinator *EscrowCoordinator
	relay       *ProofRelay
	executor    *SwapExecutor
	supervisor  *TimeoutSupervisor
	dispatcher  *dispatcher
	reporter    *reporter
	watchers    []*watcher

	sweepInterval time.Duration
	events        chan ChainEvent
}

func newRelayer(log *logan.Entry, chainA, chainB config.Network, relayerCfg config.Relayer,
	orders data.Orders, escrows data.Escrows, jobs data.Jobs, blocks data.LastBlocks, rep *reporter) *Relayer {

	events := make(chan ChainEvent, 256)
	store := NewOrderStore(log, orders, escrows)
	vault := NewSecretVault(log, orders)
	coordinator := NewEscrowCoordinator(log, store, jobs, chainA, chainB, relayerCfg)
	relay := NewProofRelay(log, store)
	executor := NewSwapExecutor(log, store, vault, coordinator, chainA, chainB)
	store.OnTerminal(vault.Forget)

	return &Relayer{
		log:         log,
		chainA:      chainA,
		chainB:      chainB,
		store:       store,
		vault:       vault,
		coordinator: coordinator,
		relay:       relay,
		executor:    executor,
		supervisor:  NewTimeoutSupervisor(log, store, coordinator, rep),
		dispatcher: &dispatcher{
			log:         log,
			store:       store,
			coordinator: coordinator,
			relay:       relay,
			executor:    executor,
			reporter:    rep,
			chainA:      chainA,
			chainB:      chainB,
			events:      events,
		},
		reporter: rep,
		watchers: []*watcher{
			newWatcher(log, chainA, blocks, rep, events),
			newWatcher(log, chainB, blocks, rep, events),
		},
		sweepInterval: relayerCfg.SweepInterval,
		events:        events,
	}
}

func New(cfg config.Config) *Relayer {
	log := cfg.Log()
	db := cfg.DB()
	rep := newReporter(log, cfg.Collector())

	return newRelayer(log, cfg.ChainA(), cfg.ChainB(), cfg.Relayer(),
		postgres.NewOrders(db), postgres.NewEscrows(db), postgres.NewJobs(db),
		postgres.NewLastBlocks(db), rep)
}

func Run(cfg config.Config) {
	New(cfg).run(context.Background())
}

func (r *Relayer) run(ctx context.Context) {
	r.log.Info("relayer started")

	for _, w := range r.watchers {
		w := w
		go running.WithBackOff(ctx, r.log, "watcher_"+w.chainName, w.run,
			time.Second, time.Second, time.Minute)
	}
	go running.WithBackOff(ctx, r.log, "timeout_supervisor", r.supervisor.sweep,
		r.sweepInterval, r.sweepInterval, time.Minute)

	running.WithBackOff(ctx, r.log, "dispatcher", r.dispatcher.run,
		time.Second, time.Second, time.Minute)
}

// CreateOrder validates the request, generates the hash lock, persists the
// order in pending state and kicks the deployment pipeline.
func (r *Relayer) CreateOrder(ctx context.Context, p CreateOrderParams) (common.Hash, error) {
	if err := validateOrderParams(p); err != nil {
		return common.Hash{}, err
	}

	orderHash := OrderHash(p)
	hashLock, err := r.vault.Generate(orderHash)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to generate hash lock")
	}

	o, err := r.store.CreateOrder(p, hashLock)
	if err != nil {
		// drop the drawn secret so a retried creation is not rejected
		// as a duplicate
		r.vault.Forget(orderHash)
		return common.Hash{}, err
	}
	r.reporter.addOrder(ctx, o)

	select {
	case r.events <- ChainEvent{Kind: EventOrderCreated, OrderHash: o.OrderHash}:
	case <-ctx.Done():
		return o.OrderHash, ctx.Err()
	}
	return o.OrderHash, nil
}

func (r *Relayer) GetOrder(orderHash common.Hash) (*data.Order, error) {
	return r.store.Get(orderHash)
}

func (r *Relayer) ListOrders(filter data.OrderFilter) ([]data.Order, error) {
	return r.store.List(filter)
}

// CancelOrder serves a client-requested cancellation. Once the reveal began
// it is rejected: the secret is public and a refund is no longer safe.
func (r *Relayer) CancelOrder(ctx context.Context, orderHash common.Hash, reason string) error {
	o, err := r.store.Get(orderHash)
	if err != nil {
		return err
	}
	if o == nil {
		return errors.From(ErrOrderNotFound, logan.F{"order_hash": orderHash.Hex()})
	}

	switch o.Status {
	case data.StatusCancelled, data.StatusExpired:
		return nil
	case data.StatusRevealing, data.StatusExecuted, data.StatusStuck:
		return errors.From(ErrCancellationWindowClosed, logan.F{
			"order_hash": orderHash.Hex(),
			"status":     o.Status.String(),
		})
	}

	if err = r.store.Transition(orderHash, o.Status, data.StatusCancelled, TransitionPayload{}); err != nil {
		return err
	}

	r.log.WithFields(logan.F{"order_hash": orderHash.Hex(), "reason": reason}).Info("order cancelled")
	r.coordinator.closeJob(orderHash, data.JobStatusFailed)
	r.reporter.orderUpdated(ctx, orderHash, data.StatusCancelled)

	err = r.coordinator.Cancel(ctx, o)
	return errors.Wrap(err, "failed to cancel deployed escrows")
}
