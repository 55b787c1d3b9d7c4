package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Swapica/relayer-svc/internal/data"
	"github.com/Swapica/relayer-svc/internal/service/requests"
	"github.com/ethereum/go-ethereum/common"
	jsonapi "gitlab.com/distributed_lab/json-api-connector"
	"gitlab.com/distributed_lab/json-api-connector/cerrors"
	"gitlab.com/distributed_lab/logan/v3"
)

// reporter pushes order lifecycle snapshots to the collector (aggregator)
// service. Reporting is best-effort: the collector is a mirror, not the
// source of truth, so failures are logged and never block the pipeline.
type reporter struct {
	log       *logan.Entry
	collector *jsonapi.Connector
}

func newReporter(log *logan.Entry, collector *jsonapi.Connector) *reporter {
	return &reporter{log: log, collector: collector}
}

func (r *reporter) addOrder(ctx context.Context, o data.Order) {
	if r.collector == nil {
		return
	}
	log := r.log.WithField("order_hash", o.OrderHash.Hex())

	body := requests.NewAddOrder(o)
	u, _ := url.Parse("/orders")
	err := r.collector.PostJSON(u, body, ctx, nil)
	if isConflict(err) {
		log.Warn("order already exists in collector DB, skipping it")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to add order into collector service")
	}
}

func (r *reporter) orderUpdated(ctx context.Context, orderHash common.Hash, status data.Status) {
	if r.collector == nil {
		return
	}

	body := requests.NewUpdateOrder(orderHash, status)
	u, _ := url.Parse("/orders")
	if err := r.collector.PatchJSON(u, body, ctx, nil); err != nil {
		r.log.WithError(err).WithField("order_hash", orderHash.Hex()).
			Error("failed to update order in collector service")
	}
}

func (r *reporter) lastBlock(ctx context.Context, chain string, height uint64) {
	if r.collector == nil {
		return
	}

	body := requests.NewUpdateBlock(height)
	u, _ := url.Parse(chain + "/block")
	if err := r.collector.PostJSON(u, body, ctx, nil); err != nil {
		r.log.WithError(err).WithField("chain", chain).Error("failed to save last block in collector")
	}
}

func isConflict(err error) bool {
	c, ok := err.(cerrors.Error)
	return ok && c.Status() == http.StatusConflict
}
