package service

import (
	"context"
	"testing"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/Swapica/relayer-svc/internal/data/mem"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/logan/v3/errors"
)

// flakyOrders fails Insert on demand to simulate a storage outage during
// order creation.
type flakyOrders struct {
	data.Orders
	failInsert bool
}

func (f *flakyOrders) Insert(o data.Order) error {
	if f.failInsert {
		return errors.New("storage unavailable")
	}
	return f.Orders.Insert(o)
}

func TestCreateOrderRetryAfterStorageFailure(t *testing.T) {
	orders := &flakyOrders{Orders: mem.NewOrders()}
	e := newTestEnvWith(t, orders)
	p := validParams(1)

	orders.failInsert = true
	_, err := e.CreateOrder(context.Background(), p)
	require.Error(t, err)

	// the drawn secret was dropped with the failed insert, so the retry
	// starts clean instead of hitting a duplicate hash lock
	orders.failInsert = false
	orderHash, err := e.CreateOrder(context.Background(), p)
	require.NoError(t, err)
	e.mustStatus(t, orderHash, data.StatusPending)
}
