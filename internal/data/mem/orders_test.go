package mem

import (
	"math/big"
	"testing"
	"time"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(n byte, status data.Status, deadline time.Time) data.Order {
	return data.Order{
		OrderHash: common.BytesToHash([]byte{n}),
		Direction: data.DirectionAtoB,
		Maker:     common.BytesToAddress([]byte{n}),
		SrcAmount: big.NewInt(100),
		DstAmount: big.NewInt(200),
		Deadline:  deadline,
		HashLock:  common.BytesToHash([]byte{n, n}),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestOrdersSelect(t *testing.T) {
	q := NewOrders()
	now := time.Now().UTC()

	require.NoError(t, q.Insert(testOrder(1, data.StatusPending, now.Add(-time.Hour))))
	require.NoError(t, q.Insert(testOrder(2, data.StatusSrcLocked, now.Add(time.Hour))))
	require.NoError(t, q.Insert(testOrder(3, data.StatusExecuted, now.Add(-time.Minute))))

	byStatus, err := q.Select(data.OrderFilter{Statuses: []data.Status{data.StatusPending, data.StatusSrcLocked}})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	overdue, err := q.Select(data.OrderFilter{
		Statuses:       []data.Status{data.StatusPending, data.StatusSrcLocked},
		DeadlineBefore: &now,
	})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, common.BytesToHash([]byte{1}), overdue[0].OrderHash)

	maker := common.BytesToAddress([]byte{2})
	byMaker, err := q.Select(data.OrderFilter{Maker: &maker})
	require.NoError(t, err)
	require.Len(t, byMaker, 1)
	assert.Equal(t, common.BytesToHash([]byte{2}), byMaker[0].OrderHash)
}

func TestOrdersUpdateStatusCAS(t *testing.T) {
	q := NewOrders()
	o := testOrder(1, data.StatusPending, time.Now().Add(time.Hour))
	require.NoError(t, q.Insert(o))

	ok, err := q.UpdateStatus(o.OrderHash, data.StatusSrcLocked, data.StatusDstLocked)
	require.NoError(t, err)
	assert.False(t, ok, "mismatched expected status must not update")

	ok, err = q.UpdateStatus(o.OrderHash, data.StatusPending, data.StatusSrcLocked)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := q.Get(o.OrderHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, data.StatusSrcLocked, got.Status)
}

func TestOrdersInsertDuplicate(t *testing.T) {
	q := NewOrders()
	o := testOrder(1, data.StatusPending, time.Now().Add(time.Hour))
	require.NoError(t, q.Insert(o))
	require.Error(t, q.Insert(o))
}
