package service

import (
	"context"
	"testing"

	"github.com/Swapica/relayer-svc/internal/chain"
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

func TestDeploySource(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))

	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	e.mustStatus(t, o.OrderHash, data.StatusSrcLocked)
	assert.Equal(t, 1, e.escrowA.deployCalls)

	escrows, err := e.store.EscrowsOf(o.OrderHash)
	require.NoError(t, err)
	require.Len(t, escrows, 1)
	assert.Equal(t, data.EscrowSideSrc, escrows[0].Side)
	assert.Equal(t, e.netA.Name, escrows[0].Chain)
	assert.Equal(t, o.SrcAmount, escrows[0].LockedAmount)

	job, err := e.jobs.GetByOrder(o.OrderHash)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, data.JobStatusOpen, job.Status)
}

func TestDeploySourceRespectsDirection(t *testing.T) {
	e := newTestEnv(t)
	p := validParams(1)
	p.Direction = data.DirectionBtoA
	o := e.newOrder(t, p)

	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	assert.Equal(t, 0, e.escrowA.deployCalls)
	assert.Equal(t, 1, e.escrowB.deployCalls)

	escrows, err := e.store.EscrowsOf(o.OrderHash)
	require.NoError(t, err)
	require.Len(t, escrows, 1)
	assert.Equal(t, e.netB.Name, escrows[0].Chain)
}

func TestDeploySourceExhaustsAttempts(t *testing.T) {
	e := newTestEnv(t)
	e.coordinator.deployAttempts = 1
	e.escrowA.failDeploy = true
	o := e.newOrder(t, validParams(1))

	err := e.coordinator.DeploySource(context.Background(), o.OrderHash)
	require.Error(t, err)
	assert.Equal(t, ErrEscrowDeploymentFailed, errors.Cause(err))

	// the order is untouched, the timeout supervisor will expire it
	e.mustStatus(t, o.OrderHash, data.StatusPending)
}

func TestDeploySourceAbortsOnConcurrentTransition(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusPending, data.StatusCancelled, TransitionPayload{}))

	err := e.coordinator.DeploySource(context.Background(), o.OrderHash)
	require.Error(t, err)
	assert.True(t, isStale(err))
	assert.Equal(t, 0, e.escrowA.deployCalls)
}

func TestDeployDestinationVerifiesProof(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	proof := chain.Proof{
		OrderHash: o.OrderHash,
		HashLock:  common.HexToHash("0xdead"),
		ChainID:   uint64(e.netA.ChainID),
	}
	err := e.coordinator.DeployDestination(context.Background(), o.OrderHash, proof)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidProof, errors.Cause(err))
	e.mustStatus(t, o.OrderHash, data.StatusSrcLocked)

	proof.HashLock = o.HashLock
	require.NoError(t, e.coordinator.DeployDestination(context.Background(), o.OrderHash, proof))
	e.mustStatus(t, o.OrderHash, data.StatusDstLocked)

	escrows, err := e.store.EscrowsOf(o.OrderHash)
	require.NoError(t, err)
	assert.Len(t, escrows, 2)
}

func TestCancelRefundsDeployedEscrows(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	got, err := e.store.Get(o.OrderHash)
	require.NoError(t, err)
	require.NoError(t, e.coordinator.Cancel(context.Background(), got))

	assert.Equal(t, 1, e.escrowA.cancelCalls)
	assert.Equal(t, 0, e.escrowB.cancelCalls)
}
