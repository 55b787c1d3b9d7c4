package service

import (
	"testing"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestEscrowRecordAmountFallback(t *testing.T) {
	e := newTestEnv(t)
	o := e.newOrder(t, validParams(1))

	// an event without a decoded amount falls back to the order leg
	// matching the escrow side
	ev := ChainEvent{
		Chain:       e.netB.Name,
		OrderHash:   o.OrderHash,
		Escrow:      common.HexToAddress("0x00000000000000000000000000000000000000e5"),
		BlockNumber: 7,
	}

	dst := e.dispatcher.escrowRecord(o, ev, data.EscrowSideDst)
	assert.Equal(t, o.DstAmount, dst.LockedAmount)

	ev.Chain = e.netA.Name
	src := e.dispatcher.escrowRecord(o, ev, data.EscrowSideSrc)
	assert.Equal(t, o.SrcAmount, src.LockedAmount)
}
