package service

import (
	"math/big"
	"testing"
	"time"

	"github.com/Swapica/relayer-svc/internal/config"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/Swapica/relayer-svc/internal/data/mem"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3"
)

type testEnv struct {
	*Relayer

	orders  data.Orders
	escrows data.Escrows
	jobs    data.Jobs

	clientA, clientB *mockClient
	escrowA, escrowB *mockEscrow
	netA, netB       config.Network
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, mem.NewOrders())
}

// newTestEnvWith lets a test substitute the orders backend, e.g. to inject
// storage failures.
func newTestEnvWith(t *testing.T, orders data.Orders) *testEnv {
	t.Helper()

	clientA := newMockClient()
	clientB := newMockClient()
	escrowA := newMockEscrow(clientA, common.HexToAddress("0x00000000000000000000000000000000000000aa"))
	escrowB := newMockEscrow(clientB, common.HexToAddress("0x00000000000000000000000000000000000000bb"))

	netA := config.Network{
		Name:           "goerli",
		ChainID:        5,
		Contract:       escrowA.contract,
		Client:         clientA,
		Escrow:         escrowA,
		BlockRange:     1000,
		RequestTimeout: time.Second,
	}
	netB := config.Network{
		Name:           "moonbase",
		ChainID:        1287,
		Contract:       escrowB.contract,
		Client:         clientB,
		Escrow:         escrowB,
		BlockRange:     1000,
		RequestTimeout: time.Second,
	}

	relayerCfg := config.Relayer{
		Resolver:       common.HexToAddress("0x00000000000000000000000000000000000000f1"),
		Stake:          big.NewInt(1_000_000),
		SafetyDeposit:  big.NewInt(500),
		DeployAttempts: 2,
		SweepInterval:  10 * time.Millisecond,
	}

	log := logan.New()
	escrows := mem.NewEscrows()
	jobs := mem.NewJobs()
	rep := newReporter(log, nil)

	r := newRelayer(log, netA, netB, relayerCfg, orders, escrows, jobs, mem.NewLastBlocks(), rep)

	return &testEnv{
		Relayer: r,
		orders:  orders,
		escrows: escrows,
		jobs:    jobs,
		clientA: clientA,
		clientB: clientB,
		escrowA: escrowA,
		escrowB: escrowB,
		netA:    netA,
		netB:    netB,
	}
}

func validParams(nonce uint64) CreateOrderParams {
	return CreateOrderParams{
		Direction: data.DirectionAtoB,
		Maker:     common.HexToAddress("0x0000000000000000000000000000000000000a11"),
		SrcAsset:  common.HexToAddress("0x0000000000000000000000000000000000000e20"),
		DstAsset:  common.HexToAddress("0x0000000000000000000000000000000000000e21"),
		SrcAmount: big.NewInt(1000),
		DstAmount: big.NewInt(2000),
		Deadline:  time.Now().Add(time.Hour),
		Nonce:     nonce,
	}
}

// newOrder persists a pending order with a generated hash lock, bypassing the
// event pipeline.
func (e *testEnv) newOrder(t *testing.T, p CreateOrderParams) *data.Order {
	t.Helper()

	orderHash := OrderHash(p)
	hashLock, err := e.vault.Generate(orderHash)
	require.NoError(t, err)

	o, err := e.store.CreateOrder(p, hashLock)
	require.NoError(t, err)
	return &o
}

func (e *testEnv) mustStatus(t *testing.T, orderHash common.Hash, want data.Status) *data.Order {
	t.Helper()

	o, err := e.store.Get(orderHash)
	require.NoError(t, err)
	require.NotNil(t, o)
	require.Equal(t, want.String(), o.Status.String())
	return o
}
