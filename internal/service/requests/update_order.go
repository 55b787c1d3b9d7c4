package requests

import (
	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/ethereum/go-ethereum/common"
)

type UpdateOrder struct {
	OrderHash string `json:"order_hash"`
	Status    string `json:"status"`
}

func NewUpdateOrder(orderHash common.Hash, status data.Status) UpdateOrder {
	return UpdateOrder{
		OrderHash: orderHash.Hex(),
		Status:    status.String(),
	}
}
