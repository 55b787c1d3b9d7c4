package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) runDispatcher(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.dispatcher.run(ctx) }()
}

func (e *testEnv) waitForStatus(t *testing.T, orderHash common.Hash, want data.Status) *data.Order {
	t.Helper()

	var got *data.Order
	require.Eventually(t, func() bool {
		o, err := e.store.Get(orderHash)
		if err != nil || o == nil {
			return false
		}
		got = o
		return o.Status == want
	}, 5*time.Second, 10*time.Millisecond, "order never reached %s", want)
	return got
}

// The full happy path: order intake, source deployment, proof relay,
// destination deployment, reveal and both claims.
func TestSwapPipeline(t *testing.T) {
	e := newTestEnv(t)
	e.runDispatcher(t)

	orderHash, err := e.CreateOrder(context.Background(), validParams(1))
	require.NoError(t, err)

	got := e.waitForStatus(t, orderHash, data.StatusExecuted)

	require.NotNil(t, got.Secret)
	assert.Equal(t, got.HashLock, crypto.Keccak256Hash(got.Secret.Bytes()))
	require.NotNil(t, got.ExecutedAt)

	escrows, err := e.store.EscrowsOf(orderHash)
	require.NoError(t, err)
	assert.Len(t, escrows, 2)

	// one deployment, one submitted proof and one claim per chain
	assert.Equal(t, 1, e.escrowA.deployCalls)
	assert.Equal(t, 1, e.escrowB.deployCalls)
	assert.Equal(t, 1, e.escrowB.submitProofCalls)
	assert.Equal(t, 1, e.escrowA.withdrawCalls)
	assert.Equal(t, 1, e.escrowB.withdrawCalls)

	job, err := e.jobs.GetByOrder(orderHash)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, data.JobStatusCompleted, job.Status)
}

// A deployment observed on-chain drives the same pipeline as the
// coordinator's own confirmation path, which is how the relayer resumes
// in-flight swaps after a restart.
func TestPipelineResumesFromObservedDeployment(t *testing.T) {
	e := newTestEnv(t)
	e.runDispatcher(t)

	o := e.newOrder(t, validParams(1))

	// the source escrow exists on-chain but the local state is still pending
	e.lockSourceOnChainOnly(t, o)

	e.waitForStatus(t, o.OrderHash, data.StatusExecuted)
	assert.Equal(t, 1, e.escrowB.deployCalls, "only the destination leg is deployed after resume")
}

// A reveal observed from chain events, rather than performed by this process,
// must still finish with the source-chain claim. This covers the counterparty
// revealing first and a restart between the reveal and the claim.
func TestPipelineClaimsObservedReveal(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	e.lockBothLegs(t, o.OrderHash)

	secret, err := e.vault.Reveal(o.OrderHash)
	require.NoError(t, err)

	e.runDispatcher(t)
	e.events <- ChainEvent{
		Kind:      EventSecretRevealed,
		Chain:     e.netB.Name,
		OrderHash: o.OrderHash,
		HashLock:  o.HashLock,
		Secret:    common.BytesToHash(secret[:]),
	}

	got := e.waitForStatus(t, o.OrderHash, data.StatusExecuted)
	require.NotNil(t, got.Secret)
	require.NotNil(t, got.ExecutedAt)

	// the destination leg was withdrawn by whoever revealed, only the
	// source claim is ours
	assert.Equal(t, 1, e.escrowA.withdrawCalls)
	assert.Equal(t, 0, e.escrowB.withdrawCalls)

	job, err := e.jobs.GetByOrder(o.OrderHash)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, data.JobStatusCompleted, job.Status)
}

// lockSourceOnChainOnly simulates a deployment that landed before a restart:
// the chain has the escrow and its log, the store does not.
func (e *testEnv) lockSourceOnChainOnly(t *testing.T, o *data.Order) {
	t.Helper()

	_, err := e.escrowA.DeploySrc(context.Background(), chain.DeployParams{
		OrderHash:     o.OrderHash,
		HashLock:      o.HashLock,
		Token:         o.SrcAsset,
		Amount:        o.SrcAmount,
		SafetyDeposit: big.NewInt(500),
		Maker:         o.Maker,
		Deadline:      uint64(o.Deadline.Unix()),
	})
	require.NoError(t, err)
	require.Len(t, e.clientA.logs, 1)

	l := e.clientA.logs[0]
	w := &watcher{chainName: e.netA.Name, escrowAbi: e.escrowA.abi, log: e.dispatcher.log}
	ev, err := w.handleEscrowCreated(EventSrcEscrowDeployed, "SrcEscrowCreated", &l)
	require.NoError(t, err)

	e.events <- *ev
}
