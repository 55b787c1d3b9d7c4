package service

import (
	"context"
	"testing"
	"time"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

func TestSweepExpiresOverdueOrders(t *testing.T) {
	e := newTestEnv(t)
	p := validParams(1)
	p.Deadline = time.Now().Add(50 * time.Millisecond)
	o := e.newOrder(t, p)
	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, e.supervisor.sweep(context.Background()))

	e.mustStatus(t, o.OrderHash, data.StatusExpired)
	assert.Equal(t, 1, e.escrowA.cancelCalls, "the deployed source escrow must be refunded")

	job, err := e.jobs.GetByOrder(o.OrderHash)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, data.JobStatusFailed, job.Status)
}

func TestSweepIgnoresLiveOrders(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))

	require.NoError(t, e.supervisor.sweep(context.Background()))
	e.mustStatus(t, o.OrderHash, data.StatusPending)
}

func TestSweepLeavesRevealingAlone(t *testing.T) {
	e := newTestEnv(t)
	p := validParams(1)
	p.Deadline = time.Now().Add(50 * time.Millisecond)
	o := e.newOrder(t, p)
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusPending, data.StatusSrcLocked, TransitionPayload{}))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusSrcLocked, data.StatusDstLocked, TransitionPayload{}))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusDstLocked, data.StatusRevealing, TransitionPayload{}))

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, e.supervisor.sweep(context.Background()))

	// the secret is out, a refund would hand the counterparty both legs
	e.mustStatus(t, o.OrderHash, data.StatusRevealing)
	assert.Equal(t, 0, e.escrowA.cancelCalls)
	assert.Equal(t, 0, e.escrowB.cancelCalls)
}

func TestCancelOrder(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	require.NoError(t, e.coordinator.DeploySource(context.Background(), o.OrderHash))

	require.NoError(t, e.CancelOrder(context.Background(), o.OrderHash, "maker requested"))
	e.mustStatus(t, o.OrderHash, data.StatusCancelled)
	assert.Equal(t, 1, e.escrowA.cancelCalls)

	// cancelling an already cancelled order is a no-op
	require.NoError(t, e.CancelOrder(context.Background(), o.OrderHash, "again"))
}

func TestCancelOrderWindowClosed(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusPending, data.StatusSrcLocked, TransitionPayload{}))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusSrcLocked, data.StatusDstLocked, TransitionPayload{}))
	require.NoError(t, e.store.Transition(o.OrderHash, data.StatusDstLocked, data.StatusRevealing, TransitionPayload{}))

	err := e.CancelOrder(context.Background(), o.OrderHash, "too late")
	require.Error(t, err)
	assert.Equal(t, ErrCancellationWindowClosed, errors.Cause(err))
	e.mustStatus(t, o.OrderHash, data.StatusRevealing)
}

func TestCancelOrderUnknown(t *testing.T) {
	e := newTestEnv(t)

	err := e.CancelOrder(context.Background(), OrderHash(validParams(9)), "")
	require.Error(t, err)
	assert.Equal(t, ErrOrderNotFound, errors.Cause(err))
}
