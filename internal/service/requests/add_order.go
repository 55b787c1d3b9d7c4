package requests

import (
	"github.com/Swapica/relayer-svc/internal/data"
)

type AddOrder struct {
	OrderHash string `json:"order_hash"`
	Direction uint8  `json:"direction"`
	Maker     string `json:"maker"`
	SrcAsset  string `json:"src_asset"`
	DstAsset  string `json:"dst_asset"`
	SrcAmount string `json:"src_amount"`
	DstAmount string `json:"dst_amount"`
	Deadline  int64  `json:"deadline"`
	HashLock  string `json:"hash_lock"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func NewAddOrder(o data.Order) AddOrder {
	return AddOrder{
		OrderHash: o.OrderHash.Hex(),
		Direction: uint8(o.Direction),
		Maker:     o.Maker.Hex(),
		SrcAsset:  o.SrcAsset.Hex(),
		DstAsset:  o.DstAsset.Hex(),
		SrcAmount: o.SrcAmount.String(),
		DstAmount: o.DstAmount.String(),
		Deadline:  o.Deadline.Unix(),
		HashLock:  o.HashLock.Hex(),
		Status:    o.Status.String(),
		CreatedAt: o.CreatedAt.Unix(),
	}
}
